package mailbox

import (
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/grafana/cassbridge/pkg/term"
)

const (
	reasonNoProcess = "no_process"
	reasonFreedEnv  = "freed_env"
)

type metrics struct {
	delivered prometheus.Counter
	dropped   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		delivered: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "cassbridge",
			Name:      "mailbox_delivered_messages_total",
			Help:      "Total number of messages delivered to process mailboxes.",
		}),
		dropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "cassbridge",
			Name:      "mailbox_dropped_messages_total",
			Help:      "Total number of messages that could not be delivered.",
		}, []string{"reason"}),
	}
}

// Registry spawns processes and delivers messages to them.
type Registry struct {
	logger  log.Logger
	metrics *metrics

	mtx       sync.RWMutex
	mailboxes map[PID]*Mailbox
}

// NewRegistry makes a new Registry.
func NewRegistry(logger log.Logger, reg prometheus.Registerer) *Registry {
	return &Registry{
		logger:    logger,
		metrics:   newMetrics(reg),
		mailboxes: map[PID]*Mailbox{},
	}
}

// Spawn registers a new mailbox under a fresh PID.
func (r *Registry) Spawn() *Mailbox {
	pid := PID(uuid.New())
	m := newMailbox(pid, r)

	r.mtx.Lock()
	r.mailboxes[pid] = m
	r.mtx.Unlock()
	return m
}

func (r *Registry) unregister(pid PID) {
	r.mtx.Lock()
	delete(r.mailboxes, pid)
	r.mtx.Unlock()
}

// Alive reports whether pid addresses a registered mailbox.
func (r *Registry) Alive(pid PID) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	_, ok := r.mailboxes[pid]
	return ok
}

// Send delivers msg, built in env, to pid. Delivery is fire-and-forget: there is
// no acknowledgment and a missing process silently drops the message. The env
// remains owned by the caller, which is expected to free it after Send returns.
func (r *Registry) Send(pid PID, env *term.Env, msg Message) bool {
	if env != nil && env.Freed() {
		level.Error(r.logger).Log("msg", "refusing to send a message built in a freed env", "pid", pid)
		r.metrics.dropped.WithLabelValues(reasonFreedEnv).Inc()
		return false
	}

	r.mtx.RLock()
	m, ok := r.mailboxes[pid]
	r.mtx.RUnlock()

	if !ok || !m.push(msg) {
		level.Debug(r.logger).Log("msg", "dropping message for dead process", "pid", pid)
		r.metrics.dropped.WithLabelValues(reasonNoProcess).Inc()
		return false
	}
	r.metrics.delivered.Inc()
	return true
}
