// Package session exposes driver sessions to processes. Every operation is
// dispatched synchronously and completes by delivering exactly one message to a
// process mailbox.
package session

import (
	"flag"

	"github.com/go-kit/log"
	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/cassbridge/pkg/driver"
	"github.com/grafana/cassbridge/pkg/mailbox"
	"github.com/grafana/cassbridge/pkg/prepared"
	"github.com/grafana/cassbridge/pkg/schema"
	"github.com/grafana/cassbridge/pkg/term"
)

// Config for the session bridge.
type Config struct {
	DefaultConsistency string `yaml:"default_consistency"`
}

// RegisterFlags adds the flags required to config this to the given FlagSet.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&cfg.DefaultConsistency, "session.default-consistency", "LOCAL_QUORUM", "Consistency level of prepared statements when the query does not carry one.")
}

// Validate the config.
func (cfg *Config) Validate() error {
	_, err := cfg.consistency()
	return err
}

func (cfg *Config) consistency() (gocql.Consistency, error) {
	c, err := gocql.ParseConsistencyWrapper(cfg.DefaultConsistency)
	if err != nil {
		return c, errors.Wrapf(err, "invalid default consistency %q", cfg.DefaultConsistency)
	}
	if !prepared.ValidConsistency(c) {
		return c, errors.Errorf("invalid default consistency %q", cfg.DefaultConsistency)
	}
	return c, nil
}

// Option customizes a Bridge.
type Option func(*Bridge)

// WithSchemaLookup sets how prepared statements resolve their table schema.
func WithSchemaLookup(l schema.Lookup) Option {
	return func(b *Bridge) { b.lookup = l }
}

// WithWrapFunc sets how prepared statements are wrapped for their receiver.
func WithWrapFunc(w prepared.WrapFunc) Option {
	return func(b *Bridge) { b.wrap = w }
}

// Bridge dispatches session operations to a driver and routes completions to
// process mailboxes.
type Bridge struct {
	cfg         Config
	consistency gocql.Consistency
	driver      driver.Driver
	mailboxes   *mailbox.Registry
	lookup      schema.Lookup
	wrap        prepared.WrapFunc
	logger      log.Logger
	metrics     *metrics

	envs     term.Stats
	contexts ContextStats
}

// New makes a new Bridge.
func New(cfg Config, drv driver.Driver, mailboxes *mailbox.Registry, logger log.Logger, reg prometheus.Registerer, opts ...Option) (*Bridge, error) {
	consistency, err := cfg.consistency()
	if err != nil {
		return nil, err
	}
	b := &Bridge{
		cfg:         cfg,
		consistency: consistency,
		driver:      drv,
		mailboxes:   mailboxes,
		lookup:      schema.Direct,
		wrap:        prepared.Wrap,
		logger:      logger,
		metrics:     newMetrics(reg),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// DefaultConsistency is the consistency of prepared statements whose query
// does not carry one.
func (b *Bridge) DefaultConsistency() gocql.Consistency {
	return b.consistency
}

// EnvStats counts the envs replies were built in.
func (b *Bridge) EnvStats() *term.Stats {
	return &b.envs
}

// ContextStats counts callback contexts.
func (b *Bridge) ContextStats() *ContextStats {
	return &b.contexts
}

// NewSession allocates a driver session. The session is freed once the handle
// is destroyed, or garbage collected, and every operation still using it has
// completed.
func (b *Bridge) NewSession() (*Handle, error) {
	s := b.driver.NewSession()
	if s == nil {
		return nil, ErrAllocation
	}
	return newHandle(s), nil
}
