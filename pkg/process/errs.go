package process

import "errors"

// Per-process read errors. Sources wrap their underlying error with one of
// these so the refresher can decide between retrying, keeping a stale
// record, or dropping it.
var (
	// ErrPermissionDenied means (part of) the process data is not readable
	// by the current user. Partial snapshots are still accepted.
	ErrPermissionDenied = errors.New("process: permission denied")

	// ErrNotFound means the identifier vanished between enumeration and read.
	ErrNotFound = errors.New("process: not found")

	// ErrTransientRead is a syscall-level hiccup; the read is retried on the
	// next refresh.
	ErrTransientRead = errors.New("process: transient read failure")

	// ErrMalformedData means the raw data could not be parsed. The record is
	// skipped for the cycle but not removed.
	ErrMalformedData = errors.New("process: malformed data")

	// ErrEnumerate means the source could not list identifiers at all. The
	// table is left unchanged.
	ErrEnumerate = errors.New("process: cannot enumerate processes")
)
