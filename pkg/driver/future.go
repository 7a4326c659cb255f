package driver

import (
	"context"
	"fmt"
	"sync"
)

// Error is a driver error code with its message.
type Error struct {
	Code    ErrorCode
	Message string
}

// NewError returns an Error.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Callback is invoked once when a Future resolves.
type Callback func(f *Future)

// Future is a one-shot result placeholder. It resolves at most once, either
// with a value or with an error code, and invokes its callback exactly once
// after both the callback is set and the future has resolved. The callback
// never runs inside SetCallback: when the future is already resolved the
// callback is started on a new goroutine.
type Future struct {
	mtx      sync.Mutex
	done     chan struct{}
	resolved bool
	code     ErrorCode
	message  string
	result   *Result
	prepared Prepared
	callback Callback
}

// NewFuture returns an unresolved Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// FailedFuture returns a Future already resolved with an error.
func FailedFuture(code ErrorCode, message string) *Future {
	f := NewFuture()
	f.Fail(code, message)
	return f
}

// SetCallback registers cb. It fails if a callback is already registered.
func (f *Future) SetCallback(cb Callback) error {
	if cb == nil {
		return NewError(ErrLibBadParams, "nil callback")
	}

	f.mtx.Lock()
	if f.callback != nil {
		f.mtx.Unlock()
		return NewError(ErrLibCallbackAlreadySet, "callback already set")
	}
	f.callback = cb
	resolved := f.resolved
	f.mtx.Unlock()

	if resolved {
		go cb(f)
	}
	return nil
}

// Resolve completes the future with a result. It returns false if the future
// had already resolved.
func (f *Future) Resolve(result *Result) bool {
	return f.complete(func() { f.result = result })
}

// ResolvePrepared completes the future with a prepared statement.
func (f *Future) ResolvePrepared(p Prepared) bool {
	return f.complete(func() { f.prepared = p })
}

// Fail completes the future with an error.
func (f *Future) Fail(code ErrorCode, message string) bool {
	return f.complete(func() {
		f.code = code
		f.message = message
	})
}

func (f *Future) complete(set func()) bool {
	f.mtx.Lock()
	if f.resolved {
		f.mtx.Unlock()
		return false
	}
	set()
	f.resolved = true
	cb := f.callback
	f.mtx.Unlock()
	close(f.done)

	if cb != nil {
		cb(f)
	}
	return true
}

// Ready reports whether the future has resolved.
func (f *Future) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ErrorCode returns the error code the future resolved with, OK on success.
func (f *Future) ErrorCode() ErrorCode {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.code
}

// ErrorMessage returns the message of a failed future.
func (f *Future) ErrorMessage() string {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.message
}

// Err returns the error of a failed future as an *Error, nil on success.
func (f *Future) Err() error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.code == OK {
		return nil
	}
	return &Error{Code: f.code, Message: f.message}
}

// Result returns the result of an executed statement.
func (f *Future) Result() *Result {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.result
}

// Prepared returns the result of a prepare.
func (f *Future) Prepared() Prepared {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.prepared
}
