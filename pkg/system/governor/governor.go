// Package governor bounds how many per-process file handles the process
// table may keep open at once.
//
// A Governor is a counter of remaining handle slots. Acquire is a lock-free
// decrement-if-positive; when it fails callers are expected to fall back to
// an open-read-close path for that one process instead of failing. The
// counter never goes below zero and never exceeds the initial budget.
package governor

import (
	"sync"
	"sync/atomic"
)

// Governor is a process-wide budget of cached handles.
type Governor struct {
	budget    int64
	available atomic.Int64
}

// New returns a Governor with the given budget. Negative budgets are
// treated as zero (every Acquire fails).
func New(budget int) *Governor {
	if budget < 0 {
		budget = 0
	}
	g := &Governor{budget: int64(budget)}
	g.available.Store(int64(budget))
	return g
}

var (
	defaultOnce sync.Once
	defaultGov  *Governor
)

// Default returns the process-wide Governor. Its budget is half of the
// open-files limit, after raising the soft limit to the hard one where the
// OS permits it.
func Default() *Governor {
	defaultOnce.Do(func() {
		defaultGov = New(initialBudget())
	})
	return defaultGov
}

// Budget returns the initial number of slots.
func (g *Governor) Budget() int { return int(g.budget) }

// Available returns the number of free slots.
func (g *Governor) Available() int { return int(g.available.Load()) }

// Acquire takes a slot. The second result is false when the budget is
// exhausted; the returned Lease is then nil.
func (g *Governor) Acquire() (*Lease, bool) {
	for {
		cur := g.available.Load()
		if cur <= 0 {
			return nil, false
		}
		if g.available.CompareAndSwap(cur, cur-1) {
			return &Lease{gov: g}, true
		}
	}
}

func (g *Governor) release() {
	for {
		cur := g.available.Load()
		if cur >= g.budget {
			return
		}
		if g.available.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

// Lease is one acquired slot. Release returns it to the Governor; calling
// it more than once, or on a nil Lease, is a no-op.
type Lease struct {
	gov  *Governor
	once sync.Once
}

// Release gives the slot back.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(l.gov.release)
}
