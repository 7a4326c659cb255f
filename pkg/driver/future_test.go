package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitCalls(t *testing.T, calls *atomic.Int32, want int32) {
	t.Helper()
	require.Eventually(t, func() bool { return calls.Load() == want }, 5*time.Second, time.Millisecond)
}

func TestFutureCallbackAfterResolve(t *testing.T) {
	f := NewFuture()
	require.True(t, f.Resolve(&Result{Rows: [][]any{{1}}}))
	require.True(t, f.Ready())

	var calls atomic.Int32
	require.NoError(t, f.SetCallback(func(got *Future) {
		assert.Same(t, f, got)
		calls.Inc()
	}))
	waitCalls(t, &calls, 1)

	require.Equal(t, OK, f.ErrorCode())
	require.NoError(t, f.Err())
	require.Equal(t, [][]any{{1}}, f.Result().Rows)
}

func TestFutureCallbackBeforeResolve(t *testing.T) {
	f := NewFuture()

	var calls atomic.Int32
	require.NoError(t, f.SetCallback(func(*Future) { calls.Inc() }))
	require.Equal(t, int32(0), calls.Load())
	require.False(t, f.Ready())

	require.True(t, f.Fail(ErrLibRequestTimedOut, "timed out"))
	require.False(t, f.Resolve(nil))
	require.False(t, f.Fail(ErrLibBadParams, "again"))
	waitCalls(t, &calls, 1)

	require.Equal(t, ErrLibRequestTimedOut, f.ErrorCode())
	require.Equal(t, "timed out", f.ErrorMessage())

	var derr *Error
	require.True(t, errors.As(f.Err(), &derr))
	require.Equal(t, ErrLibRequestTimedOut, derr.Code)
}

func TestFutureCallbackOnlyOnce(t *testing.T) {
	f := NewFuture()
	require.NoError(t, f.SetCallback(func(*Future) {}))

	err := f.SetCallback(func(*Future) {})
	var derr *Error
	require.True(t, errors.As(err, &derr))
	require.Equal(t, ErrLibCallbackAlreadySet, derr.Code)

	err = NewFuture().SetCallback(nil)
	require.True(t, errors.As(err, &derr))
	require.Equal(t, ErrLibBadParams, derr.Code)
}

func TestFutureConcurrentResolve(t *testing.T) {
	for i := 0; i < 100; i++ {
		f := NewFuture()
		var calls atomic.Int32
		var wg sync.WaitGroup

		wg.Add(3)
		go func() { defer wg.Done(); f.Resolve(&Result{}) }()
		go func() { defer wg.Done(); f.Fail(ErrLibRequestTimedOut, "") }()
		go func() {
			defer wg.Done()
			assert.NoError(t, f.SetCallback(func(*Future) { calls.Inc() }))
		}()
		wg.Wait()

		waitCalls(t, &calls, 1)
	}
}

func TestFutureWait(t *testing.T) {
	f := NewFuture()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, f.Wait(ctx), context.DeadlineExceeded)

	p := FailedFuture(ErrLibNoHostsAvailable, "no hosts")
	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, "lib_no_hosts_available: no hosts", p.Err().Error())
}

func TestErrorCodeString(t *testing.T) {
	for _, tc := range []struct {
		code ErrorCode
		want string
	}{
		{OK, "ok"},
		{ErrLibRequestQueueFull, "lib_request_queue_full"},
		{ServerError(0x2000), "server_syntax_error"},
		{ServerError(0x1234), "server_error_0x1234"},
		{ErrSSLInvalidCert, "ssl_invalid_cert"},
		{ErrorCode(0x05000001), "unknown_error_0x05000001"},
	} {
		assert.Equal(t, tc.want, tc.code.String())
	}

	assert.Equal(t, SourceServer, ServerError(0x2200).Source())
	assert.Equal(t, uint32(0x2200), ServerError(0x2200).Code())
}
