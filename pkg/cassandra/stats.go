package cassandra

import (
	"context"
	"net"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"go.uber.org/atomic"

	"github.com/grafana/cassbridge/pkg/driver"
)

const (
	// reservoir size and decay of the latency sample
	sampleSize  = 1028
	sampleAlpha = 0.015
)

var percentiles = []float64{0.5, 0.75, 0.95, 0.98, 0.99, 0.999}

// stats tracks the counters reported by Session.Metrics. It observes every
// query and connection attempt of the session.
type stats struct {
	latency metrics.Histogram
	rate    metrics.Meter

	writeBytesHighWaterMark int
	pendingBytes            atomic.Int64
	inFlight                atomic.Int64

	totalConnections                 atomic.Uint64
	exceededPendingRequestsWaterMark atomic.Uint64
	exceededWriteBytesWaterMark      atomic.Uint64
	connectionTimeouts               atomic.Uint64
	pendingRequestTimeouts           atomic.Uint64
	requestTimeouts                  atomic.Uint64
}

func newStats(writeBytesHighWaterMark int) *stats {
	return &stats{
		latency:                 metrics.NewHistogram(metrics.NewExpDecaySample(sampleSize, sampleAlpha)),
		rate:                    metrics.NewMeter(),
		writeBytesHighWaterMark: writeBytesHighWaterMark,
	}
}

func (s *stats) enqueued(size int) {
	pending := s.pendingBytes.Add(int64(size))
	if s.writeBytesHighWaterMark > 0 && pending > int64(s.writeBytesHighWaterMark) {
		s.exceededWriteBytesWaterMark.Inc()
	}
}

func (s *stats) dequeued(size int) {
	s.pendingBytes.Sub(int64(size))
}

// ObserveQuery implements gocql.QueryObserver.
func (s *stats) ObserveQuery(_ context.Context, q gocql.ObservedQuery) {
	s.latency.Update(q.End.Sub(q.Start).Microseconds())
	s.rate.Mark(1)
}

// ObserveConnect implements gocql.ConnectObserver.
func (s *stats) ObserveConnect(c gocql.ObservedConnect) {
	if c.Err == nil {
		s.totalConnections.Inc()
		return
	}
	if isTimeout(c.Err) {
		s.connectionTimeouts.Inc()
	}
}

func (s *stats) stop() {
	s.rate.Stop()
}

func (s *stats) snapshot() driver.Metrics {
	latency := s.latency.Snapshot()
	ps := latency.Percentiles(percentiles)
	rate := s.rate.Snapshot()

	total := s.totalConnections.Load()
	available := uint64(0)
	if inFlight := uint64(max(s.inFlight.Load(), 0)); inFlight < total {
		available = total - inFlight
	}

	return driver.Metrics{
		Requests: driver.RequestMetrics{
			Min:               uint64(latency.Min()),
			Max:               uint64(latency.Max()),
			Mean:              uint64(latency.Mean()),
			StdDev:            uint64(latency.StdDev()),
			Median:            uint64(ps[0]),
			Percentile75th:    uint64(ps[1]),
			Percentile95th:    uint64(ps[2]),
			Percentile98th:    uint64(ps[3]),
			Percentile99th:    uint64(ps[4]),
			Percentile999th:   uint64(ps[5]),
			MeanRate:          rate.RateMean(),
			OneMinuteRate:     rate.Rate1(),
			FiveMinuteRate:    rate.Rate5(),
			FifteenMinuteRate: rate.Rate15(),
		},
		Stats: driver.StatsMetrics{
			TotalConnections:                 total,
			AvailableConnections:             available,
			ExceededPendingRequestsWaterMark: s.exceededPendingRequestsWaterMark.Load(),
			ExceededWriteBytesWaterMark:      s.exceededWriteBytesWaterMark.Load(),
		},
		Errors: driver.ErrorMetrics{
			ConnectionTimeouts:     s.connectionTimeouts.Load(),
			PendingRequestTimeouts: s.pendingRequestTimeouts.Load(),
			RequestTimeouts:        s.requestTimeouts.Load(),
		},
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, gocql.ErrTimeoutNoResponse) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
