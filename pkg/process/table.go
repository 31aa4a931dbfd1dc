package process

import (
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Table maps identifiers to process records. Only the refresher changes its
// membership: inserts, replacements and the purge of untouched records all
// happen in its single-threaded merge step.
type Table struct {
	mu    sync.RWMutex
	procs map[PID]*Process
}

func newTable() *Table {
	return &Table{procs: make(map[PID]*Process)}
}

// Get returns the record for pid.
func (t *Table) Get(pid PID) (*Process, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.procs[pid]
	return p, ok
}

// Len returns the number of records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.procs)
}

// Range calls fn for every record in unspecified order until fn returns
// false. fn must not refresh the table.
func (t *Table) Range(fn func(*Process) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, p := range t.procs {
		if !fn(p) {
			return
		}
	}
}

// PIDs returns all identifiers in ascending order.
func (t *Table) PIDs() []PID {
	t.mu.RLock()
	out := make([]PID, 0, len(t.procs))
	for pid := range t.procs {
		out = append(out, pid)
	}
	t.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Children returns the identifiers of records whose parent is pid, in
// ascending order. Tasks are not included.
func (t *Table) Children(pid PID) []PID {
	var out []PID
	t.Range(func(p *Process) bool {
		if p.parent == pid && p.threadKind == ThreadNone {
			out = append(out, p.pid)
		}
		return true
	})
	slices.Sort(out)
	return out
}

// The methods below require t.mu to be held for writing.

// put inserts p, closing the record it replaces.
func (t *Table) put(p *Process) {
	if old, ok := t.procs[p.pid]; ok && old != p {
		_ = old.close()
	}
	t.procs[p.pid] = p
}

func (t *Table) resetTouched() {
	for _, p := range t.procs {
		p.touched = false
	}
}

// retainTouched drops every untouched record and returns how many went.
func (t *Table) retainTouched() int {
	n := 0
	for pid, p := range t.procs {
		if p.touched {
			continue
		}
		_ = p.close()
		delete(t.procs, pid)
		n++
	}
	return n
}

// close releases every cached handle and empties the table.
func (t *Table) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var result *multierror.Error
	for pid, p := range t.procs {
		if err := p.close(); err != nil {
			result = multierror.Append(result, err)
		}
		delete(t.procs, pid)
	}
	return result.ErrorOrNil()
}
