//go:build linux

package governor

import "golang.org/x/sys/unix"

// fallbackLimit is used when the open-files limit cannot be read.
const fallbackLimit = 1024

func initialBudget() int {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return fallbackLimit / 2
	}
	if rl.Cur < rl.Max {
		raised := unix.Rlimit{Cur: rl.Max, Max: rl.Max}
		if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &raised); err == nil {
			rl.Cur = rl.Max
		}
	}
	limit := rl.Cur
	// RLIM_INFINITY or absurdly large limits: cap to something a map of
	// cached handles can reasonably hold.
	if limit > 1<<20 {
		limit = 1 << 20
	}
	return int(limit / 2)
}
