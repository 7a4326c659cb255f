package mailbox

import (
	"context"
	"errors"
	"sync"

	"github.com/eapache/queue"
	"github.com/google/uuid"
)

// ErrClosed is returned by Receive once the mailbox was closed and drained.
var ErrClosed = errors.New("mailbox closed")

// PID addresses a process mailbox.
type PID uuid.UUID

// NilPID is the zero PID. It never addresses a live mailbox.
var NilPID PID

func (p PID) String() string {
	return uuid.UUID(p).String()
}

// Message is anything delivered to a mailbox.
type Message = any

// Mailbox is an unbounded FIFO of messages owned by one process. Senders never
// block; the owner consumes with Receive.
type Mailbox struct {
	pid      PID
	registry *Registry

	mtx    sync.Mutex
	queue  *queue.Queue
	notify chan struct{}
	closed bool
}

func newMailbox(pid PID, r *Registry) *Mailbox {
	return &Mailbox{
		pid:      pid,
		registry: r,
		queue:    queue.New(),
		notify:   make(chan struct{}, 1),
	}
}

// PID returns the address of the mailbox.
func (m *Mailbox) PID() PID {
	return m.pid
}

// Len returns the number of queued messages.
func (m *Mailbox) Len() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.queue.Length()
}

func (m *Mailbox) push(msg Message) bool {
	m.mtx.Lock()
	if m.closed {
		m.mtx.Unlock()
		return false
	}
	m.queue.Add(msg)
	m.mtx.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// Receive blocks until a message is available, the context is done or the
// mailbox is closed and empty.
func (m *Mailbox) Receive(ctx context.Context) (Message, error) {
	for {
		m.mtx.Lock()
		if m.queue.Length() > 0 {
			msg := m.queue.Remove()
			m.mtx.Unlock()
			return msg, nil
		}
		closed := m.closed
		m.mtx.Unlock()

		if closed {
			return nil, ErrClosed
		}

		select {
		case <-m.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryReceive returns the next message without blocking.
func (m *Mailbox) TryReceive() (Message, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.queue.Length() == 0 {
		return nil, false
	}
	return m.queue.Remove(), true
}

// Close unregisters the mailbox. Messages sent afterwards are dropped; messages
// already queued can still be received.
func (m *Mailbox) Close() {
	m.registry.unregister(m.pid)

	m.mtx.Lock()
	m.closed = true
	m.mtx.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

type selfKey struct{}

// WithSelf returns a context identifying pid as the calling process.
func WithSelf(ctx context.Context, pid PID) context.Context {
	return context.WithValue(ctx, selfKey{}, pid)
}

// Self returns the calling process set with WithSelf.
func Self(ctx context.Context) (PID, bool) {
	pid, ok := ctx.Value(selfKey{}).(PID)
	return pid, ok && pid != NilPID
}
