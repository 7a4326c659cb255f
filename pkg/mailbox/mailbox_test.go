package mailbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/grafana/cassbridge/pkg/term"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRegistry() *Registry {
	return NewRegistry(log.NewNopLogger(), prometheus.NewPedanticRegistry())
}

func TestSendReceiveOrder(t *testing.T) {
	r := newTestRegistry()
	mb := r.Spawn()
	defer mb.Close()

	for i := 0; i < 10; i++ {
		require.True(t, r.Send(mb.PID(), nil, i))
	}
	require.Equal(t, 10, mb.Len())

	for i := 0; i < 10; i++ {
		msg, err := mb.Receive(context.Background())
		require.NoError(t, err)
		require.Equal(t, i, msg)
	}
	_, ok := mb.TryReceive()
	require.False(t, ok)
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	r := newTestRegistry()
	mb := r.Spawn()
	defer mb.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		r.Send(mb.PID(), term.NewEnv(nil), "hello")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := mb.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, "hello", msg)
}

func TestReceiveHonoursContext(t *testing.T) {
	r := newTestRegistry()
	mb := r.Spawn()
	defer mb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := mb.Receive(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendToDeadProcess(t *testing.T) {
	r := newTestRegistry()
	mb := r.Spawn()
	require.True(t, r.Alive(mb.PID()))

	require.True(t, r.Send(mb.PID(), nil, "queued"))
	mb.Close()
	require.False(t, r.Alive(mb.PID()))

	require.False(t, r.Send(mb.PID(), nil, "dropped"))
	require.False(t, r.Send(NilPID, nil, "dropped"))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.metrics.dropped.WithLabelValues(reasonNoProcess)))

	// already queued messages survive Close
	msg, err := mb.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, "queued", msg)

	_, err = mb.Receive(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestSendRefusesFreedEnv(t *testing.T) {
	r := newTestRegistry()
	mb := r.Spawn()
	defer mb.Close()

	env := term.NewEnv(nil)
	env.Free()
	require.False(t, r.Send(mb.PID(), env, "x"))
	require.Equal(t, 0, mb.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.dropped.WithLabelValues(reasonFreedEnv)))
}

func TestConcurrentSenders(t *testing.T) {
	r := newTestRegistry()
	mb := r.Spawn()
	defer mb.Close()

	const senders, perSender = 8, 100
	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				r.Send(mb.PID(), nil, i)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, senders*perSender, mb.Len())
	assert.Equal(t, float64(senders*perSender), testutil.ToFloat64(r.metrics.delivered))
}

func TestSelf(t *testing.T) {
	_, ok := Self(context.Background())
	require.False(t, ok)

	r := newTestRegistry()
	mb := r.Spawn()
	defer mb.Close()

	pid, ok := Self(WithSelf(context.Background(), mb.PID()))
	require.True(t, ok)
	require.Equal(t, mb.PID(), pid)

	_, ok = Self(WithSelf(context.Background(), NilPID))
	require.False(t, ok)
}
