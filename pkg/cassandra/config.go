package cassandra

import (
	"flag"
	"time"

	"github.com/gocql/gocql"
	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
)

// Config for the Cassandra driver.
type Config struct {
	Addresses                flagext.StringSliceCSV `yaml:"addresses"`
	Port                     int                    `yaml:"port"`
	Keyspace                 string                 `yaml:"keyspace"`
	Consistency              string                 `yaml:"consistency"`
	DisableInitialHostLookup bool                   `yaml:"disable_initial_host_lookup"`
	SSL                      bool                   `yaml:"SSL"`
	HostVerification         bool                   `yaml:"host_verification"`
	CAPath                   string                 `yaml:"CA_path"`
	Auth                     bool                   `yaml:"auth"`
	Username                 string                 `yaml:"username"`
	Password                 flagext.Secret         `yaml:"password"`
	Timeout                  time.Duration          `yaml:"timeout"`
	ConnectTimeout           time.Duration          `yaml:"connect_timeout"`
	NumConnections           int                    `yaml:"num_connections"`

	CallbackGoroutines      int           `yaml:"callback_goroutines"`
	MaxPendingRequests      int           `yaml:"max_pending_requests"`
	PendingRequestTimeout   time.Duration `yaml:"pending_request_timeout"`
	WriteBytesHighWaterMark int           `yaml:"write_bytes_high_water_mark"`
}

// RegisterFlags adds the flags required to config this to the given FlagSet
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.Var(&cfg.Addresses, "cassandra.addresses", "Comma-separated hostnames or IPs of Cassandra instances.")
	f.IntVar(&cfg.Port, "cassandra.port", 9042, "Port that Cassandra is running on")
	f.StringVar(&cfg.Keyspace, "cassandra.keyspace", "", "Keyspace sessions connect into when none is given.")
	f.StringVar(&cfg.Consistency, "cassandra.consistency", "QUORUM", "Consistency level of statements that do not set one.")
	f.BoolVar(&cfg.DisableInitialHostLookup, "cassandra.disable-initial-host-lookup", false, "Instruct the cassandra driver to not attempt to get host info from the system.peers table.")
	f.BoolVar(&cfg.SSL, "cassandra.ssl", false, "Use SSL when connecting to cassandra instances.")
	f.BoolVar(&cfg.HostVerification, "cassandra.host-verification", true, "Require SSL certificate validation.")
	f.StringVar(&cfg.CAPath, "cassandra.ca-path", "", "Path to certificate file to verify the peer.")
	f.BoolVar(&cfg.Auth, "cassandra.auth", false, "Enable password authentication when connecting to cassandra.")
	f.StringVar(&cfg.Username, "cassandra.username", "", "Username to use when connecting to cassandra.")
	f.Var(&cfg.Password, "cassandra.password", "Password to use when connecting to cassandra.")
	f.DurationVar(&cfg.Timeout, "cassandra.timeout", 2*time.Second, "Timeout of a single request.")
	f.DurationVar(&cfg.ConnectTimeout, "cassandra.connect-timeout", 5*time.Second, "Timeout when connecting to cassandra.")
	f.IntVar(&cfg.NumConnections, "cassandra.num-connections", 2, "Number of connections per host.")
	f.IntVar(&cfg.CallbackGoroutines, "cassandra.callback-goroutines", 10, "How many goroutines run requests and their completions per session.")
	f.IntVar(&cfg.MaxPendingRequests, "cassandra.max-pending-requests", 10000, "How many requests a session queues before rejecting new ones.")
	f.DurationVar(&cfg.PendingRequestTimeout, "cassandra.pending-request-timeout", 10*time.Second, "How long a request may wait in the queue before it fails. 0 to disable.")
	f.IntVar(&cfg.WriteBytesHighWaterMark, "cassandra.write-bytes-high-water-mark", 64*1024*1024, "Bytes of queued statements above which writes are reported as exceeding the water mark. 0 to disable.")
}

// Validate the config.
func (cfg *Config) Validate() error {
	if _, err := gocql.ParseConsistencyWrapper(cfg.Consistency); err != nil {
		return errors.Wrapf(err, "invalid consistency %q", cfg.Consistency)
	}
	if cfg.Auth && cfg.Username == "" {
		return errors.New("password authentication requires a username")
	}
	if cfg.CallbackGoroutines <= 0 {
		return errors.New("callback goroutines must be positive")
	}
	if cfg.MaxPendingRequests <= 0 {
		return errors.New("max pending requests must be positive")
	}
	return nil
}

// cluster returns the cluster config of a session connecting into keyspace,
// or into the configured keyspace when keyspace is empty.
func (cfg *Config) cluster(keyspace string) (*gocql.ClusterConfig, error) {
	consistency, err := gocql.ParseConsistencyWrapper(cfg.Consistency)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if keyspace == "" {
		keyspace = cfg.Keyspace
	}

	cluster := gocql.NewCluster(cfg.Addresses...)
	cluster.Port = cfg.Port
	cluster.Keyspace = keyspace
	cluster.Consistency = consistency
	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.ConnectTimeout
	if cfg.NumConnections > 0 {
		cluster.NumConns = cfg.NumConnections
	}
	cfg.setClusterConfig(cluster)
	return cluster, nil
}

// apply config settings to a cassandra ClusterConfig
func (cfg *Config) setClusterConfig(cluster *gocql.ClusterConfig) {
	cluster.DisableInitialHostLookup = cfg.DisableInitialHostLookup

	if cfg.SSL {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 cfg.CAPath,
			EnableHostVerification: cfg.HostVerification,
		}
	}
	if cfg.Auth {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password.String(),
		}
	}
}
