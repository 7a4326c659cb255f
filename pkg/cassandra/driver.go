// Package cassandra implements the driver interfaces on top of gocql.
package cassandra

import (
	"github.com/go-kit/log"
	"github.com/grafana/dskit/instrument"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/grafana/cassbridge/pkg/driver"
)

type driverMetrics struct {
	requestDuration *instrument.HistogramCollector
	queueLength     prometheus.Gauge
	rejected        *prometheus.CounterVec
}

func newDriverMetrics(reg prometheus.Registerer) *driverMetrics {
	return &driverMetrics{
		requestDuration: instrument.NewHistogramCollector(promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cassbridge",
			Name:      "cassandra_request_duration_seconds",
			Help:      "Time spent doing Cassandra requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		}, []string{"operation", "status_code"})),
		queueLength: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "cassbridge",
			Name:      "cassandra_pending_requests",
			Help:      "Number of requests queued across all sessions.",
		}),
		rejected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "cassbridge",
			Name:      "cassandra_rejected_requests_total",
			Help:      "Total number of requests rejected because the session queue was full.",
		}, []string{"operation"}),
	}
}

// Driver hands out gocql backed sessions.
type Driver struct {
	cfg     Config
	logger  log.Logger
	metrics *driverMetrics
}

// NewDriver makes a new Driver.
func NewDriver(cfg Config, logger log.Logger, reg prometheus.Registerer) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		cfg:     cfg,
		logger:  logger,
		metrics: newDriverMetrics(reg),
	}, nil
}

// NewSession implements driver.Driver.
func (d *Driver) NewSession() driver.Session {
	return newSession(d.cfg, d.logger, d.metrics)
}
