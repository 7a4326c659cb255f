package term

import (
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Term is a value owned by a host process. Terms handed to the bridge are only
// valid for the duration of the call that received them, so anything that has
// to outlive the call is copied into an Env first.
type Term = any

// Ref is a unique reference, used as a correlation token when the bridge has
// to fabricate one.
type Ref uuid.UUID

// MakeRef returns a fresh unique reference.
func MakeRef() Ref {
	return Ref(uuid.New())
}

func (r Ref) String() string {
	return uuid.UUID(r).String()
}

// Stats counts Env allocations. Tests use it to verify that every env the
// bridge creates is freed exactly once.
type Stats struct {
	allocated  atomic.Int64
	freed      atomic.Int64
	doubleFree atomic.Int64
}

// Live returns the number of envs allocated and not yet freed.
func (s *Stats) Live() int64 {
	return s.allocated.Load() - s.freed.Load()
}

// Allocated returns the total number of envs allocated.
func (s *Stats) Allocated() int64 { return s.allocated.Load() }

// Freed returns the total number of envs freed.
func (s *Stats) Freed() int64 { return s.freed.Load() }

// DoubleFrees returns the number of Free calls on an already freed env.
func (s *Stats) DoubleFrees() int64 { return s.doubleFree.Load() }

// Env is a private term space with its own lifetime. Terms copied into an Env
// share no memory with the originals.
type Env struct {
	stats *Stats
	freed atomic.Bool
}

// NewEnv allocates an Env. stats may be nil.
func NewEnv(stats *Stats) *Env {
	if stats != nil {
		stats.allocated.Inc()
	}
	return &Env{stats: stats}
}

// Copy deep copies t into the env.
func (e *Env) Copy(t Term) Term {
	return deepCopy(t)
}

// MakeRef creates a fresh reference inside the env.
func (e *Env) MakeRef() Ref {
	return MakeRef()
}

// Freed reports whether Free has been called.
func (e *Env) Freed() bool {
	return e.freed.Load()
}

// Free releases the env. It returns false when the env was already freed.
func (e *Env) Free() bool {
	if !e.freed.CompareAndSwap(false, true) {
		if e.stats != nil {
			e.stats.doubleFree.Inc()
		}
		return false
	}
	if e.stats != nil {
		e.stats.freed.Inc()
	}
	return true
}
