package log

import (
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	dslog "github.com/grafana/dskit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Logger is a shared go-kit logger. Packages take their logger through their
// constructors; this one serves the command line.
var Logger = log.NewNopLogger()

// InitLogger initialises the global logger according to the level and format.
// The logger writes to stderr and counts messages per level in reg.
func InitLogger(lvl dslog.Level, format string, reg prometheus.Registerer) log.Logger {
	Logger = newPrometheusLogger(lvl, format, reg, log.NewSyncWriter(os.Stderr))
	return Logger
}

// prometheusLogger exposes Prometheus counters for each of go-kit's log levels.
type prometheusLogger struct {
	baseLogger  log.Logger
	logMessages *prometheus.CounterVec
}

func newPrometheusLogger(lvl dslog.Level, format string, reg prometheus.Registerer, w io.Writer) log.Logger {
	logger := log.NewLogfmtLogger(w)
	if format == "json" {
		logger = log.NewJSONLogger(w)
	}
	logger = level.NewFilter(logger, levelFilter(lvl.String()))

	logMessages := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: "cassbridge",
		Name:      "log_messages_total",
		Help:      "Total number of log messages.",
	}, []string{"level"})
	// Initialise counters for all supported levels:
	for _, l := range []level.Value{level.DebugValue(), level.InfoValue(), level.WarnValue(), level.ErrorValue()} {
		logMessages.WithLabelValues(l.String())
	}

	// return a Logger without caller information, shouldn't use directly
	return log.With(&prometheusLogger{
		baseLogger:  logger,
		logMessages: logMessages,
	}, "ts", log.DefaultTimestampUTC)
}

// Log increments the appropriate Prometheus counter depending on the log level.
func (pl *prometheusLogger) Log(kv ...interface{}) error {
	pl.baseLogger.Log(kv...)
	l := "unknown"
	for i := 1; i < len(kv); i += 2 {
		if v, ok := kv[i].(level.Value); ok {
			l = v.String()
			break
		}
	}
	pl.logMessages.WithLabelValues(l).Inc()
	return nil
}

func levelFilter(l string) level.Option {
	switch l {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

// CheckFatal prints an error and exits with error code 1 if err is non-nil.
func CheckFatal(location string, err error, logger log.Logger) {
	if err != nil {
		logger := level.Error(logger)
		if location != "" {
			logger = log.With(logger, "msg", "error "+location)
		}
		// %+v gets the stack trace from errors using github.com/pkg/errors
		logger.Log("err", fmt.Sprintf("%+v", err))
		os.Exit(1)
	}
}
