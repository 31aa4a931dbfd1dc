// Package proc reads process snapshots from a Linux procfs mount.
//
// Source implements process.Source:
//
//   - Enumerate lists the numeric entries of the mount.
//   - ReadIdentity and ReadSnapshot parse /proc/<pid>/stat by hand. comm (the
//     2nd field) is in parens and may contain spaces and parens, so fields
//     are taken after the last ") ". The identity marker is starttime, the
//     22nd field, in clock ticks since boot.
//   - Open keeps /proc/<pid>/stat open so later reads are a single pread.
//     When the handle fails (its process exited, the PID may have been
//     reused) the read falls back to the path.
//   - ProbeAlive sends signal 0; EPERM still proves the process exists.
//
// Everything besides the stat line (cmdline, environ, cwd, root, exe, io,
// uid/gid from the status file, task ids) is read through
// github.com/prometheus/procfs. Such sub-reads never fail a
// snapshot: a field that cannot be read is dropped from Snapshot.Read and
// the stored value is kept.
//
// Errors from the stat read are classified for the refresher:
//
//	ENOENT, ESRCH  -> process.ErrNotFound
//	EACCES, EPERM  -> process.ErrPermissionDenied
//	parse failure  -> process.ErrMalformedData
//	anything else  -> process.ErrTransientRead
//
// SystemTimes reads the aggregate cpu line of /proc/stat for the global
// usage variant:
//
//	busy = user + nice + system + irq + softirq + steal
//	idle = idle + iowait
//
// Tick rate and page size come from sysconf(3) through
// github.com/tklauser/go-sysconf; the CLK_TCK and PAGE_SIZE env vars
// override both for testing.
package proc
