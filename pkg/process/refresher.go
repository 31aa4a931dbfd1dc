package process

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/ja7ad/sysinfo/pkg/system/governor"
	"github.com/ja7ad/sysinfo/pkg/system/usage"
)

// Config configures a Refresher. Zero values select defaults.
type Config struct {
	// Workers bounds how many identifiers are examined in parallel.
	// 0 means one per logical core, 1 disables the worker pool.
	Workers int
	// Governor bounds cached handles. Defaults to governor.Default().
	Governor *governor.Governor
	// ClockTicks is the scheduler tick rate of the source. Defaults to 100.
	ClockTicks int
	// Computer converts ticks into usage. Defaults to usage.New(ClockTicks, 0).
	Computer *usage.Computer
	Logger   *slog.Logger
	// Now is the wall clock. Defaults to time.Now.
	Now func() time.Time
}

// Refresher keeps a Table in sync with a Source.
//
// A refresh is synchronous: it returns once every requested identifier was
// examined. Examination fans out over a bounded worker pool; workers only
// read the table and report a reconciliation, and all changes are applied
// afterwards in one single-threaded merge. Errors are isolated per process.
type Refresher struct {
	mu sync.Mutex

	src    Source
	table  *Table
	gov    *governor.Governor
	comp   *usage.Computer
	clkTck int
	logger *slog.Logger
	now    func() time.Time
	pool   pond.Pool
}

// NewRefresher returns a Refresher over src with an empty table.
func NewRefresher(src Source, cfg *Config) *Refresher {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Workers <= 0 {
		c.Workers = usage.LogicalCores()
	}
	if c.Governor == nil {
		c.Governor = governor.Default()
	}
	if c.ClockTicks <= 0 {
		c.ClockTicks = 100
	}
	if c.Computer == nil {
		c.Computer = usage.New(c.ClockTicks, 0)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	r := &Refresher{
		src:    src,
		table:  newTable(),
		gov:    c.Governor,
		comp:   c.Computer,
		clkTck: c.ClockTicks,
		logger: c.Logger,
		now:    c.Now,
	}
	if c.Workers > 1 {
		r.pool = pond.NewPool(c.Workers)
	}
	return r
}

// Table returns the table kept by r.
func (r *Refresher) Table() *Table { return r.table }

// RefreshAll examines every identifier the source currently lists, then
// drops every record that was not touched: processes that disappeared, or
// that could not be read and were not confirmed alive. It returns the number
// of identifiers successfully read.
//
// If the source cannot enumerate at all the table is left unchanged and an
// error wrapping ErrEnumerate is returned.
func (r *Refresher) RefreshAll(kind RefreshKind) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.src.Enumerate()
	if err != nil {
		r.logger.Error("enumerate processes", slog.Any("err", err))
		return 0, fmt.Errorf("%w: %w", ErrEnumerate, err)
	}

	r.table.mu.Lock()
	r.table.resetTouched()
	r.table.mu.Unlock()

	results := r.examine(dedup(ids), kind)

	r.table.mu.Lock()
	defer r.table.mu.Unlock()
	n := r.merge(results)
	purged := r.table.retainTouched()

	r.logger.Debug("processes refreshed",
		slog.Int("examined", n),
		slog.Int("purged", purged),
		slog.Int("tracked", len(r.table.procs)))
	return n, nil
}

// RefreshSome examines only ids. Unknown identifiers are added, known ones
// reconciled; nothing is ever removed. An empty ids is a no-op.
func (r *Refresher) RefreshSome(ids []PID, kind RefreshKind) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	results := r.examine(dedup(ids), kind)

	r.table.mu.Lock()
	defer r.table.mu.Unlock()
	return r.merge(results), nil
}

// Close releases every cached handle and stops the worker pool. The table
// is empty afterwards.
func (r *Refresher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool != nil {
		r.pool.StopAndWait()
		r.pool = nil
	}
	return r.table.close()
}

// examine runs the read phase. results[i] belongs to ids[i] and is written
// by exactly one worker.
func (r *Refresher) examine(ids []PID, kind RefreshKind) [][]reconciliation {
	own := make(map[PID]struct{}, len(ids))
	for _, pid := range ids {
		own[pid] = struct{}{}
	}

	results := make([][]reconciliation, len(ids))
	if r.pool == nil || len(ids) < 2 {
		for i, pid := range ids {
			results[i] = r.examineOne(pid, kind, own)
		}
		return results
	}

	group := r.pool.NewGroup()
	for i, pid := range ids {
		group.Submit(func() {
			results[i] = r.examineOne(pid, kind, own)
		})
	}
	_ = group.Wait()
	return results
}

// examineOne reconciles pid and, when requested, its tasks. Tasks that are
// themselves in own are left to their own worker.
func (r *Refresher) examineOne(pid PID, kind RefreshKind, own map[PID]struct{}) []reconciliation {
	prev, _ := r.table.Get(pid)
	res := r.reconcile(pid, prev, kind)
	res.at = r.now()
	out := []reconciliation{res}

	if !kind.Tasks {
		return out
	}
	var tasks []PID
	switch {
	case res.outcome.examined() && res.snap.Read.Has(FieldTasks):
		tasks = res.snap.Tasks
	case (res.outcome == outcomeStale || res.outcome == outcomeSkipped) && prev != nil:
		// the owner is kept as is, so are the tasks it had
		tasks = prev.tasks
	}
	taskKind := kind
	taskKind.Tasks = false
	for _, tid := range tasks {
		if tid == pid {
			continue
		}
		if _, ok := own[tid]; ok {
			continue
		}
		prevTask, _ := r.table.Get(tid)
		tr := r.reconcile(tid, prevTask, taskKind)
		tr.at = r.now()
		tr.owner = pid
		out = append(out, tr)
	}
	return out
}

// merge applies reconciliations to the table. Caller holds r.table.mu.
func (r *Refresher) merge(results [][]reconciliation) int {
	n := 0
	for _, batch := range results {
		for _, res := range batch {
			env := applyEnv{now: res.at, computer: r.comp, clkTck: r.clkTck}
			prev := r.table.procs[res.pid]

			var p *Process
			switch res.outcome {
			case outcomeCreated, outcomeReplaced:
				p = newProcess(res.snap, res.handle, env)
				r.table.put(p)
				if p.handle == nil && prev != nil {
					// put returned the old record's slot
					p.handle = openHandle(r.src, r.gov, p.pid)
				}
			case outcomeUpdated:
				if prev == nil {
					p = newProcess(res.snap, res.handle, env)
					r.table.put(p)
				} else {
					p = prev
					p.apply(res.snap, env)
					p.adopt(res.handle)
				}
			case outcomeStale, outcomeSkipped:
				if prev != nil {
					prev.keep()
				}
			case outcomeGone:
				if prev != nil {
					prev.exists = false
				}
			}

			if p == nil {
				continue
			}
			if res.owner != 0 {
				p.threadKind = ThreadUserland
				p.parent = res.owner
			}
			n++
		}
	}
	return n
}

func dedup(ids []PID) []PID {
	seen := make(map[PID]struct{}, len(ids))
	out := make([]PID, 0, len(ids))
	for _, pid := range ids {
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		out = append(out, pid)
	}
	return out
}
