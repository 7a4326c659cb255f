package cassandra

import (
	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/grafana/cassbridge/pkg/driver"
)

// errorCode maps a gocql error to a driver error code. Errors the driver does
// not classify get fallback.
func errorCode(err error, fallback driver.ErrorCode) (driver.ErrorCode, string) {
	var reqErr gocql.RequestError
	switch {
	case err == nil:
		return driver.OK, ""
	case errors.As(err, &reqErr):
		return driver.ServerError(reqErr.Code()), reqErr.Message()
	case isTimeout(err):
		return driver.ErrLibRequestTimedOut, err.Error()
	case errors.Is(err, gocql.ErrNoHosts), errors.Is(err, gocql.ErrNoConnections), errors.Is(err, gocql.ErrNoConnectionsStarted):
		return driver.ErrLibNoHostsAvailable, err.Error()
	case errors.Is(err, gocql.ErrSessionClosed):
		return driver.ErrLibUnableToConnect, err.Error()
	case errors.Is(err, gocql.ErrNoKeyspace):
		return driver.ErrLibUnableToSetKeyspace, err.Error()
	case errors.Is(err, gocql.ErrQueryArgLength), errors.Is(err, gocql.ErrTooManyStmts):
		return driver.ErrLibInvalidItemCount, err.Error()
	}
	return fallback, err.Error()
}

// fail resolves f with err.
func fail(f *driver.Future, err error, fallback driver.ErrorCode) {
	code, message := errorCode(err, fallback)
	f.Fail(code, message)
}
