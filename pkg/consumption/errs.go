package consumption

import "errors"

var (
	// ErrNoPIDs is returned by Sample when called with an empty pid slice.
	ErrNoPIDs = errors.New("consumption: no pids")
	// ErrBadDt is returned by Sample for a non-positive interval.
	ErrBadDt = errors.New("consumption: interval must be > 0")
	// ErrAllExited is returned when none of the pids is alive at sampling time.
	ErrAllExited = errors.New("consumption: all processes exited")
)
