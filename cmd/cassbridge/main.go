// Command cassbridge connects to a Cassandra cluster, prepares and runs the
// queries given as arguments concurrently and prints their rows.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"

	"github.com/grafana/cassbridge/pkg/cassandra"
	"github.com/grafana/cassbridge/pkg/cfg"
	"github.com/grafana/cassbridge/pkg/mailbox"
	"github.com/grafana/cassbridge/pkg/schema"
	"github.com/grafana/cassbridge/pkg/session"
	util_log "github.com/grafana/cassbridge/pkg/util/log"
)

func main() {
	var config Config
	if err := cfg.Parse(&config, flag.CommandLine, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "failed parsing config: %v\n", err)
		os.Exit(1)
	}
	if config.PrintVersion {
		fmt.Println(version.Print("cassbridge"))
		os.Exit(0)
	}

	reg := prometheus.NewRegistry()
	logger := util_log.InitLogger(config.LogLevel, config.LogFormat, reg)

	if err := config.Validate(); err != nil {
		level.Error(logger).Log("msg", "validating config", "err", err.Error())
		os.Exit(1)
	}
	queries := flag.Args()
	if len(queries) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] query...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	drv, err := cassandra.NewDriver(config.Cassandra, logger, reg)
	util_log.CheckFatal("initialising driver", err, logger)

	mailboxes := mailbox.NewRegistry(logger, reg)
	bridge, err := session.New(config.Session, drv, mailboxes, logger, reg,
		session.WithSchemaLookup(schema.NewCachedLookup(config.SchemaCache, schema.Direct, reg)))
	util_log.CheckFatal("initialising session bridge", err, logger)

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	r := &runner{
		bridge:    bridge,
		mailboxes: mailboxes,
		logger:    logger,
		keyspace:  config.Keyspace,
		limit:     config.Concurrency,
		metrics:   config.PrintMetrics,
		out:       os.Stdout,
	}
	if err := r.run(ctx, queries); err != nil {
		cancel()
		util_log.CheckFatal("running queries", err, logger)
	}
}
