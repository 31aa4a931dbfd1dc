package process

import (
	"errors"
	"log/slog"
	"time"
)

// outcome is the result of examining one identifier.
type outcome uint8

const (
	// outcomeGone: the process could not be read and is not alive.
	outcomeGone outcome = iota
	// outcomeCreated: first sighting, snap holds a full read.
	outcomeCreated
	// outcomeUpdated: same identity as the stored record, snap updates it.
	outcomeUpdated
	// outcomeReplaced: the PID was reused, snap describes a new process.
	outcomeReplaced
	// outcomeStale: the read failed but the process is alive; keep the
	// stored record unchanged.
	outcomeStale
	// outcomeSkipped: the raw data was malformed; keep the stored record
	// unchanged for this cycle.
	outcomeSkipped
)

func (o outcome) String() string {
	switch o {
	case outcomeGone:
		return "gone"
	case outcomeCreated:
		return "created"
	case outcomeUpdated:
		return "updated"
	case outcomeReplaced:
		return "replaced"
	case outcomeStale:
		return "stale"
	case outcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// examined reports whether the outcome carries a successful read.
func (o outcome) examined() bool {
	return o == outcomeCreated || o == outcomeUpdated || o == outcomeReplaced
}

// reconciliation is what a worker hands back to the merge step. Workers
// never touch the table or a record; they only read.
type reconciliation struct {
	pid     PID
	owner   PID // non-zero for a task record
	outcome outcome
	snap    *Snapshot
	handle  *cachedHandle // new handle for the record, if one was opened
	at      time.Time     // when the read finished
	err     error
}

// reconcile examines pid against its stored record prev (nil if none).
func (r *Refresher) reconcile(pid PID, prev *Process, kind RefreshKind) reconciliation {
	if prev == nil {
		return r.build(pid, kind, outcomeCreated)
	}

	h := prev.handle.reader()
	id, err := r.src.ReadIdentity(pid, h)
	if err != nil {
		return r.failed(pid, err)
	}
	if id != prev.identity {
		return r.build(pid, kind, outcomeReplaced)
	}

	snap, err := r.src.ReadSnapshot(pid, h, kind.resolve(prev))
	if err != nil {
		return r.failed(pid, err)
	}
	if snap.Identity != prev.identity {
		// reused between the two reads
		return r.build(pid, kind, outcomeReplaced)
	}
	res := reconciliation{pid: pid, outcome: outcomeUpdated, snap: snap}
	if prev.handle == nil {
		// the budget may have freed up since the record was created
		res.handle = openHandle(r.src, r.gov, pid)
	}
	return res
}

// build reads a process from scratch, opening a cached handle for it when
// the governor allows.
func (r *Refresher) build(pid PID, kind RefreshKind, o outcome) reconciliation {
	h := openHandle(r.src, r.gov, pid)
	snap, err := r.src.ReadSnapshot(pid, h.reader(), kind.resolve(nil))
	if err != nil {
		if h != nil {
			_ = h.Close()
		}
		res := r.failed(pid, err)
		if o == outcomeReplaced {
			// The stored record belongs to a dead process; keeping it
			// would report the wrong process under this PID.
			res.outcome = outcomeGone
		}
		return res
	}
	return reconciliation{pid: pid, outcome: o, snap: snap, handle: h}
}

// failed classifies a read error.
func (r *Refresher) failed(pid PID, err error) reconciliation {
	res := reconciliation{pid: pid, err: err}
	switch {
	case errors.Is(err, ErrMalformedData):
		r.logger.Warn("malformed process data", slog.Int("pid", int(pid)), slog.Any("err", err))
		res.outcome = outcomeSkipped
	case r.src.ProbeAlive(pid):
		r.logger.Debug("process read failed, keeping stale data", slog.Int("pid", int(pid)), slog.Any("err", err))
		res.outcome = outcomeStale
	default:
		r.logger.Debug("process gone", slog.Int("pid", int(pid)), slog.Any("err", err))
		res.outcome = outcomeGone
	}
	return res
}
