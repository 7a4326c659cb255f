package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/grafana/cassbridge/pkg/driver"
)

const (
	opConnect = "connect"
	opClose   = "close"
	opPrepare = "prepare"
	opExecute = "execute"

	statusOK          = "ok"
	statusError       = "error"
	statusRejected    = "rejected"
	statusBadArgument = "bad_argument"
)

type metrics struct {
	operations            *prometheus.CounterVec
	contextsInFlight      prometheus.Gauge
	contextDoubleReleases prometheus.Counter
	undelivered           prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "cassbridge",
			Name:      "session_operations_total",
			Help:      "Total number of session operations by outcome.",
		}, []string{"operation", "status"}),
		contextsInFlight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "cassbridge",
			Name:      "session_callback_contexts_in_flight",
			Help:      "Number of operations dispatched and not completed yet.",
		}),
		contextDoubleReleases: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "cassbridge",
			Name:      "session_callback_context_double_releases_total",
			Help:      "Total number of callback contexts released more than once.",
		}),
		undelivered: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "cassbridge",
			Name:      "session_undelivered_messages_total",
			Help:      "Total number of completion messages whose receiver was gone.",
		}),
	}
}

func (m *metrics) observe(op string, err error) {
	status := statusOK
	if err != nil {
		status = statusError
	}
	m.operations.WithLabelValues(op, status).Inc()
}

// Snapshot is a point in time copy of the driver session metrics, grouped the
// way they are reported.
type Snapshot struct {
	Requests RequestsSnapshot `yaml:"requests"`
	Stats    StatsSnapshot    `yaml:"stats"`
	Errors   ErrorsSnapshot   `yaml:"errors"`
}

type RequestsSnapshot struct {
	Min               uint64  `yaml:"min"`
	Max               uint64  `yaml:"max"`
	Mean              uint64  `yaml:"mean"`
	StdDev            uint64  `yaml:"stddev"`
	Median            uint64  `yaml:"median"`
	Percentile75th    uint64  `yaml:"percentile_75th"`
	Percentile95th    uint64  `yaml:"percentile_95th"`
	Percentile98th    uint64  `yaml:"percentile_98th"`
	Percentile99th    uint64  `yaml:"percentile_99th"`
	Percentile999th   uint64  `yaml:"percentile_999th"`
	MeanRate          float64 `yaml:"mean_rate"`
	OneMinuteRate     float64 `yaml:"one_minute_rate"`
	FiveMinuteRate    float64 `yaml:"five_minute_rate"`
	FifteenMinuteRate float64 `yaml:"fifteen_minute_rate"`
}

type StatsSnapshot struct {
	TotalConnections                 uint64 `yaml:"total_connections"`
	AvailableConnections             uint64 `yaml:"available_connections"`
	ExceededPendingRequestsWaterMark uint64 `yaml:"exceeded_pending_requests_water_mark"`
	ExceededWriteBytesWaterMark      uint64 `yaml:"exceeded_write_bytes_water_mark"`
}

type ErrorsSnapshot struct {
	ConnectionTimeouts     uint64 `yaml:"connection_timeouts"`
	PendingRequestTimeouts uint64 `yaml:"pending_request_timeouts"`
	RequestTimeouts        uint64 `yaml:"request_timeouts"`
}

func newSnapshot(m driver.Metrics) *Snapshot {
	r, s, e := m.Requests, m.Stats, m.Errors
	return &Snapshot{
		Requests: RequestsSnapshot{
			Min:               r.Min,
			Max:               r.Max,
			Mean:              r.Mean,
			StdDev:            r.StdDev,
			Median:            r.Median,
			Percentile75th:    r.Percentile75th,
			Percentile95th:    r.Percentile95th,
			Percentile98th:    r.Percentile98th,
			Percentile99th:    r.Percentile99th,
			Percentile999th:   r.Percentile999th,
			MeanRate:          r.MeanRate,
			OneMinuteRate:     r.OneMinuteRate,
			FiveMinuteRate:    r.FiveMinuteRate,
			FifteenMinuteRate: r.FifteenMinuteRate,
		},
		Stats: StatsSnapshot{
			TotalConnections:                 s.TotalConnections,
			AvailableConnections:             s.AvailableConnections,
			ExceededPendingRequestsWaterMark: s.ExceededPendingRequestsWaterMark,
			ExceededWriteBytesWaterMark:      s.ExceededWriteBytesWaterMark,
		},
		Errors: ErrorsSnapshot{
			ConnectionTimeouts:     e.ConnectionTimeouts,
			PendingRequestTimeouts: e.PendingRequestTimeouts,
			RequestTimeouts:        e.RequestTimeouts,
		},
	}
}

// Map returns the snapshot as nested maps keyed by the reported field names.
// Counters and latencies are uint64, rates float64.
func (s *Snapshot) Map() map[string]map[string]any {
	r, st, e := s.Requests, s.Stats, s.Errors
	return map[string]map[string]any{
		"requests": {
			"min":                 r.Min,
			"max":                 r.Max,
			"mean":                r.Mean,
			"stddev":              r.StdDev,
			"median":              r.Median,
			"percentile_75th":     r.Percentile75th,
			"percentile_95th":     r.Percentile95th,
			"percentile_98th":     r.Percentile98th,
			"percentile_99th":     r.Percentile99th,
			"percentile_999th":    r.Percentile999th,
			"mean_rate":           r.MeanRate,
			"one_minute_rate":     r.OneMinuteRate,
			"five_minute_rate":    r.FiveMinuteRate,
			"fifteen_minute_rate": r.FifteenMinuteRate,
		},
		"stats": {
			"total_connections":                    st.TotalConnections,
			"available_connections":                st.AvailableConnections,
			"exceeded_pending_requests_water_mark": st.ExceededPendingRequestsWaterMark,
			"exceeded_write_bytes_water_mark":      st.ExceededWriteBytesWaterMark,
		},
		"errors": {
			"connection_timeouts":      e.ConnectionTimeouts,
			"pending_request_timeouts": e.PendingRequestTimeouts,
			"request_timeouts":         e.RequestTimeouts,
		},
	}
}
