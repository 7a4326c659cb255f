package cassandra

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/cassbridge/pkg/driver"
)

var (
	errQueueFull = errors.New("the request queue has reached capacity")
	errStopped   = errors.New("session freed")
)

// task is a queued request. Exactly one of run or fail is called.
type task struct {
	enqueued time.Time
	size     int
	run      func()
	fail     func(code driver.ErrorCode, message string)
}

// executor runs the requests of one session on a fixed set of goroutines fed
// by a bounded queue. Futures resolve, and so run their callbacks, on these
// goroutines.
type executor struct {
	timeout     time.Duration
	queueLength prometheus.Gauge
	stats       *stats

	wg    sync.WaitGroup
	quit  chan struct{}
	tasks chan *task

	mtx     sync.RWMutex
	stopped bool
}

func newExecutor(goroutines, buffer int, timeout time.Duration, queueLength prometheus.Gauge, st *stats) *executor {
	e := &executor{
		timeout:     timeout,
		queueLength: queueLength,
		stats:       st,
		quit:        make(chan struct{}),
		tasks:       make(chan *task, buffer),
	}

	e.wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go e.loop()
	}
	return e
}

// submit queues t without blocking.
func (e *executor) submit(t *task) error {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	if e.stopped {
		return errStopped
	}

	t.enqueued = time.Now()
	select {
	case e.tasks <- t:
		e.queueLength.Inc()
		e.stats.enqueued(t.size)
		return nil
	default:
		return errQueueFull
	}
}

// stop makes the goroutines exit once their current task is done. It does not
// wait for them: tasks left in the queue are failed and then done is called
// from another goroutine.
func (e *executor) stop(done func()) {
	e.mtx.Lock()
	if e.stopped {
		e.mtx.Unlock()
		return
	}
	e.stopped = true
	close(e.quit)
	e.mtx.Unlock()

	go func() {
		e.wg.Wait()
		e.drain()
		if done != nil {
			done()
		}
	}()
}

func (e *executor) drain() {
	for {
		select {
		case t := <-e.tasks:
			e.dequeued(t)
			t.fail(driver.ErrLibUnableToClose, "session freed with requests pending")
		default:
			return
		}
	}
}

func (e *executor) loop() {
	defer e.wg.Done()

	for {
		select {
		case t := <-e.tasks:
			e.dequeued(t)
			if e.timeout > 0 && time.Since(t.enqueued) > e.timeout {
				e.stats.pendingRequestTimeouts.Inc()
				t.fail(driver.ErrLibRequestTimedOut, "request timed out while pending")
				continue
			}
			t.run()
		case <-e.quit:
			return
		}
	}
}

func (e *executor) dequeued(t *task) {
	e.queueLength.Dec()
	e.stats.dequeued(t.size)
}
