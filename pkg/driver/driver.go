package driver

import (
	"github.com/grafana/cassbridge/pkg/schema"
	"github.com/grafana/cassbridge/pkg/statement"
)

// Driver creates sessions.
type Driver interface {
	// NewSession returns a session that is not connected yet, or nil if the
	// driver cannot allocate one.
	NewSession() Session
}

// Session is a driver session. All operations are asynchronous: they return a
// Future immediately and complete on a driver goroutine. An error return means
// the driver refused the call and no Future exists.
type Session interface {
	schema.Source

	// Connect connects to the cluster, using keyspace when it is not empty.
	Connect(keyspace string) (*Future, error)
	Close() (*Future, error)
	Prepare(query string) (*Future, error)
	Execute(stmt *statement.Statement) (*Future, error)

	// Metrics returns a point in time copy of the session counters.
	Metrics() Metrics

	// Free releases the session. Callers free a session exactly once.
	Free()
}

// Prepared is a statement prepared by the driver. It must be freed exactly once.
type Prepared interface {
	Query() string
	Keyspace() string
	Table() string
	Free()
}

// ColumnInfo describes a result column.
type ColumnInfo struct {
	Keyspace string
	Table    string
	Name     string
	Type     string
}

// Result is the decoded result of an executed statement.
type Result struct {
	Columns     []ColumnInfo
	Rows        [][]any
	PagingState []byte
}

// HasMorePages reports whether the result is partial.
func (r *Result) HasMorePages() bool {
	return len(r.PagingState) > 0
}

// Metrics is a snapshot of session counters. Latencies are in microseconds,
// rates in requests per second.
type Metrics struct {
	Requests RequestMetrics
	Stats    StatsMetrics
	Errors   ErrorMetrics
}

type RequestMetrics struct {
	Min               uint64
	Max               uint64
	Mean              uint64
	StdDev            uint64
	Median            uint64
	Percentile75th    uint64
	Percentile95th    uint64
	Percentile98th    uint64
	Percentile99th    uint64
	Percentile999th   uint64
	MeanRate          float64
	OneMinuteRate     float64
	FiveMinuteRate    float64
	FifteenMinuteRate float64
}

type StatsMetrics struct {
	TotalConnections                 uint64
	AvailableConnections             uint64
	ExceededPendingRequestsWaterMark uint64
	ExceededWriteBytesWaterMark      uint64
}

type ErrorMetrics struct {
	ConnectionTimeouts     uint64
	PendingRequestTimeouts uint64
	RequestTimeouts        uint64
}
