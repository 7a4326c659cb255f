package main

import (
	"flag"
	"time"

	dslog "github.com/grafana/dskit/log"
	"github.com/pkg/errors"

	"github.com/grafana/cassbridge/pkg/cassandra"
	"github.com/grafana/cassbridge/pkg/schema"
	"github.com/grafana/cassbridge/pkg/session"
)

// Config is the configuration of the cassbridge command.
type Config struct {
	Cassandra   cassandra.Config   `yaml:"cassandra"`
	Session     session.Config     `yaml:"session"`
	SchemaCache schema.CacheConfig `yaml:"schema_cache"`

	LogLevel  dslog.Level `yaml:"log_level"`
	LogFormat string      `yaml:"log_format"`

	Keyspace     string        `yaml:"keyspace"`
	Concurrency  int           `yaml:"concurrency"`
	Timeout      time.Duration `yaml:"timeout"`
	PrintMetrics bool          `yaml:"print_metrics"`

	ConfigFile   string `yaml:"-"`
	PrintVersion bool   `yaml:"-"`
}

// RegisterFlags registers flag.
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.Cassandra.RegisterFlags(f)
	c.Session.RegisterFlags(f)
	c.SchemaCache.RegisterFlags(f)

	_ = c.LogLevel.Set("info")
	f.Var(&c.LogLevel, "log.level", "Only log messages with the given severity or above. Valid levels: [debug, info, warn, error]")
	f.StringVar(&c.LogFormat, "log.format", "logfmt", "Output log messages in the given format. Valid formats: [logfmt, json]")

	f.StringVar(&c.Keyspace, "keyspace", "", "Keyspace to connect into. Defaults to -cassandra.keyspace.")
	f.IntVar(&c.Concurrency, "concurrency", 4, "How many queries run at the same time.")
	f.DurationVar(&c.Timeout, "timeout", time.Minute, "Timeout of the whole run.")
	f.BoolVar(&c.PrintMetrics, "print-metrics", false, "Print the session metrics after the queries ran.")

	f.StringVar(&c.ConfigFile, "config.file", "", "YAML file to load")
	f.BoolVar(&c.PrintVersion, "version", false, "Print this builds version information")
}

// Validate the config.
func (c *Config) Validate() error {
	if err := c.Cassandra.Validate(); err != nil {
		return errors.Wrap(err, "invalid cassandra config")
	}
	if err := c.Session.Validate(); err != nil {
		return errors.Wrap(err, "invalid session config")
	}
	if c.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if c.LogFormat != "logfmt" && c.LogFormat != "json" {
		return errors.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
