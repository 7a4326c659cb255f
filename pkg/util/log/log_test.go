package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-kit/log/level"
	dslog "github.com/grafana/dskit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusLogger(t *testing.T) {
	testCases := []struct {
		testName      string
		logLevel      string
		format        string
		expectedLines int
		expectedJSON  bool
	}{
		{"Debug", "debug", "logfmt", 4, false},
		{"Info", "info", "logfmt", 3, false},
		{"Warn", "warn", "json", 2, true},
		{"Error", "error", "logfmt", 1, false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.testName, func(t *testing.T) {
			var lvl dslog.Level
			require.NoError(t, lvl.Set(testCase.logLevel))

			var buf bytes.Buffer
			reg := prometheus.NewRegistry()
			logger := newPrometheusLogger(lvl, testCase.format, reg, &buf)

			level.Debug(logger).Log("msg", "debug")
			level.Info(logger).Log("msg", "info")
			level.Warn(logger).Log("msg", "warn")
			level.Error(logger).Log("msg", "error")

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			assert.Len(t, lines, testCase.expectedLines)
			assert.Equal(t, testCase.expectedJSON, strings.HasPrefix(lines[0], "{"))

			// filtered messages are counted too
			count, err := testutil.GatherAndCount(reg, "cassbridge_log_messages_total")
			require.NoError(t, err)
			assert.Equal(t, 4, count)
		})
	}
}

func TestPrometheusLoggerCountsLevels(t *testing.T) {
	var lvl dslog.Level
	require.NoError(t, lvl.Set("info"))

	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	logger := newPrometheusLogger(lvl, "logfmt", reg, &buf)

	level.Warn(logger).Log("msg", "one")
	level.Warn(logger).Log("msg", "two")
	logger.Log("msg", "no level")

	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP cassbridge_log_messages_total Total number of log messages.
# TYPE cassbridge_log_messages_total counter
cassbridge_log_messages_total{level="debug"} 0
cassbridge_log_messages_total{level="error"} 0
cassbridge_log_messages_total{level="info"} 0
cassbridge_log_messages_total{level="unknown"} 1
cassbridge_log_messages_total{level="warn"} 2
`), "cassbridge_log_messages_total"))
	assert.Contains(t, buf.String(), `msg=one`)
	assert.Contains(t, buf.String(), `ts=`)
}
