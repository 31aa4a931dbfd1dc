package proc

import "errors"

var (
	// ErrNoStat indicates that /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("proc: malformed or empty stat")

	// ErrShortStat indicates that /proc/<pid>/stat had fewer fields than expected.
	ErrShortStat = errors.New("proc: short stat")

	// ErrBadField indicates a stat or status field that is not a number.
	ErrBadField = errors.New("proc: bad numeric field")

	// ErrNoIDs indicates that /proc/<pid>/status had no Uid or Gid line.
	ErrNoIDs = errors.New("proc: no uid/gid in status")
)
