package session

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/grafana/cassbridge/pkg/driver"
)

var (
	// ErrBadArgument is returned synchronously for malformed input.
	ErrBadArgument = errors.New("bad argument")
	// ErrAllocation is returned when the driver cannot allocate a session.
	ErrAllocation = errors.New("failed to allocate session")
	// ErrSchemaLookup matches SchemaLookupError.
	ErrSchemaLookup = errors.New("failed to get the table schema")
)

// Error is a driver error, either a synchronous rejection or the failure a
// future resolved with.
type Error = driver.Error

func badArgument(format string, args ...any) error {
	return errors.Wrapf(ErrBadArgument, format, args...)
}

// SchemaLookupError reports that a statement was prepared but its table schema
// could not be read.
type SchemaLookupError struct {
	Keyspace string
	Table    string
	Cause    error
}

func (e *SchemaLookupError) Error() string {
	return fmt.Sprintf("%s %s.%s: %v", ErrSchemaLookup, e.Keyspace, e.Table, e.Cause)
}

func (e *SchemaLookupError) Unwrap() error { return e.Cause }

func (e *SchemaLookupError) Is(target error) bool { return target == ErrSchemaLookup }

// rejection converts a synchronous driver refusal to an *Error.
func rejection(err error) error {
	var derr *driver.Error
	if errors.As(err, &derr) {
		return derr
	}
	return driver.NewError(driver.ErrLibInternalError, "%v", err)
}
