//go:build linux

package proc

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/prometheus/procfs"
	"github.com/tklauser/go-sysconf"
	"golang.org/x/sys/unix"

	"github.com/ja7ad/sysinfo/pkg/process"
	"github.com/ja7ad/sysinfo/pkg/system/usage"
	"github.com/ja7ad/sysinfo/pkg/types"
)

// ClockTicks returns the number of jiffies (clock ticks) per second.
// The CLK_TCK env var overrides it (useful for testing), otherwise it asks
// sysconf(_SC_CLK_TCK) and falls back to 100.
func ClockTicks() int {
	if v, _ := strconv.Atoi(os.Getenv("CLK_TCK")); v > 0 {
		return v
	}
	if v, err := sysconf.Sysconf(sysconf.SC_CLK_TCK); err == nil && v > 0 {
		return int(v)
	}
	return 100
}

// PageSize returns the system memory page size in bytes.
// Like ClockTicks, it first checks an env override (PAGE_SIZE).
func PageSize() int {
	if v, _ := strconv.Atoi(os.Getenv("PAGE_SIZE")); v > 0 {
		return v
	}
	if v, err := sysconf.Sysconf(sysconf.SC_PAGESIZE); err == nil && v > 0 {
		return int(v)
	}
	return os.Getpagesize()
}

// Config configures a Source. Zero values select defaults.
type Config struct {
	// Root is the procfs mount point, procfs.DefaultMountPoint by default.
	// Any other root is treated as a snapshot of /proc: liveness is then
	// judged by the presence of the <pid> directory instead of kill(2).
	Root          string
	ClockTicks    int
	PageSize      int
	UserCacheSize int
	Logger        *slog.Logger
}

// Source reads process snapshots from a procfs mount. It implements
// process.Source and is safe for concurrent use.
type Source struct {
	fs       procfs.FS
	root     string
	live     bool
	clkTck   int
	pageSize uint64
	boot     time.Time
	users    *userNames
	logger   *slog.Logger
}

var _ process.Source = (*Source)(nil)

// NewSource opens the procfs mount described by cfg.
func NewSource(cfg *Config) (*Source, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Root == "" {
		c.Root = procfs.DefaultMountPoint
	}
	if c.ClockTicks <= 0 {
		c.ClockTicks = ClockTicks()
	}
	if c.PageSize <= 0 {
		c.PageSize = PageSize()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	pfs, err := procfs.NewFS(c.Root)
	if err != nil {
		return nil, fmt.Errorf("proc: open %s: %w", c.Root, err)
	}
	st, err := pfs.Stat()
	if err != nil {
		return nil, fmt.Errorf("proc: read boot time: %w", err)
	}

	return &Source{
		fs:       pfs,
		root:     c.Root,
		live:     filepath.Clean(c.Root) == procfs.DefaultMountPoint,
		clkTck:   c.ClockTicks,
		pageSize: uint64(c.PageSize),
		boot:     time.Unix(int64(st.BootTime), 0),
		users:    newUserNames(c.UserCacheSize),
		logger:   c.Logger,
	}, nil
}

// ClockTicks returns the tick rate the source converts start times with.
func (s *Source) ClockTicks() int { return s.clkTck }

// BootTime returns the system boot time read when the source was opened.
func (s *Source) BootTime() time.Time { return s.boot }

// SystemTimes returns the aggregate busy and idle CPU seconds from
// /proc/stat:
//   - busy: user + nice + system + irq + softirq + steal
//   - idle: idle + iowait
func (s *Source) SystemTimes() (usage.Times, error) {
	st, err := s.fs.Stat()
	if err != nil {
		return usage.Times{}, fmt.Errorf("proc: read stat: %w", err)
	}
	c := st.CPUTotal
	return usage.Times{
		Busy: c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal,
		Idle: c.Idle + c.Iowait,
	}, nil
}

// Enumerate lists every numeric entry of the mount.
func (s *Source) Enumerate() ([]process.PID, error) {
	procs, err := s.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("proc: list %s: %w", s.root, err)
	}
	out := make([]process.PID, 0, len(procs))
	for _, p := range procs {
		out = append(out, process.PID(p.PID))
	}
	return out, nil
}

// Open returns /proc/<pid>/stat held open for repeated positioned reads.
func (s *Source) Open(pid process.PID) (process.Handle, error) {
	f, err := os.Open(s.path(pid, "stat"))
	if err != nil {
		return nil, classify(pid, err)
	}
	return f, nil
}

// ProbeAlive reports whether pid names a live process. A process owned by
// someone else answers kill(2) with EPERM, which still proves it exists.
func (s *Source) ProbeAlive(pid process.PID) bool {
	if pid <= 0 {
		return false
	}
	if !s.live {
		_, err := os.Stat(s.path(pid))
		return err == nil
	}
	err := unix.Kill(int(pid), 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// ReadIdentity returns the start time of pid in clock ticks since boot.
func (s *Source) ReadIdentity(pid process.PID, h process.Handle) (process.Identity, error) {
	st, err := s.readStat(pid, h)
	if err != nil {
		return 0, err
	}
	return process.Identity(st.starttime), nil
}

// ReadSnapshot reads the stat line of pid plus every sub-read in want.
//
// Only the stat read can fail the snapshot. A sub-read that fails (no
// permission, a kernel thread without an exe link, a process exiting midway)
// is left out of the snapshot's Read set, so the stored value is kept.
func (s *Source) ReadSnapshot(pid process.PID, h process.Handle, want process.Fields) (*process.Snapshot, error) {
	st, err := s.readStat(pid, h)
	if err != nil {
		return nil, err
	}

	snap := &process.Snapshot{
		PID:       pid,
		Parent:    process.PID(st.ppid),
		Identity:  process.Identity(st.starttime),
		Name:      st.name,
		Status:    process.StatusFromCode(st.state),
		StartTime: s.startTime(st.starttime),
		Read:      want,
	}
	if want.Has(process.FieldCPU) {
		snap.Ticks = usage.Ticks{User: st.utime, System: st.stime}
	}
	if want.Has(process.FieldMemory) {
		rss := max(st.rss, 0)
		snap.Memory = process.Memory{
			Resident: types.ToBytes(uint64(rss) * s.pageSize),
			Virtual:  types.ToBytes(st.vsize),
		}
	}

	const statOnly = process.FieldCPU | process.FieldMemory
	if want&^statOnly == 0 {
		return snap, nil
	}

	p, err := s.fs.Proc(int(pid))
	if err != nil {
		snap.Read &= statOnly
		s.logger.Debug("process vanished during read", slog.Int("pid", int(pid)), slog.Any("err", err))
		return snap, nil
	}

	if want.Has(process.FieldDiskUsage) {
		if pio, err := p.IO(); err != nil {
			s.partial(snap, process.FieldDiskUsage, "io", err)
		} else {
			snap.IO = process.IO{
				ReadBytes:    types.ToBytes(pio.ReadBytes),
				WrittenBytes: types.ToBytes(pio.WriteBytes),
			}
		}
	}
	if want.Has(process.FieldCmd) {
		if cmd, err := p.CmdLine(); err != nil {
			s.partial(snap, process.FieldCmd, "cmdline", err)
		} else {
			snap.Cmd = cmd
		}
	}
	if want.Has(process.FieldEnviron) {
		if env, err := p.Environ(); err != nil {
			s.partial(snap, process.FieldEnviron, "environ", err)
		} else {
			snap.Environ = env
		}
	}
	if want.Has(process.FieldCwd) {
		if cwd, err := p.Cwd(); err != nil {
			s.partial(snap, process.FieldCwd, "cwd", err)
		} else {
			snap.Cwd = cwd
		}
	}
	if want.Has(process.FieldRoot) {
		if root, err := p.RootDir(); err != nil {
			s.partial(snap, process.FieldRoot, "root", err)
		} else {
			snap.Root = root
		}
	}
	if want.Has(process.FieldExe) {
		if exe, err := p.Executable(); err != nil {
			s.partial(snap, process.FieldExe, "exe", err)
		} else {
			snap.Exe = exe
		}
	}
	if want.Has(process.FieldUser) {
		if u, err := s.readUser(p); err != nil {
			s.partial(snap, process.FieldUser, "status", err)
		} else {
			snap.User = u
		}
	}
	if want.Has(process.FieldTasks) {
		if tasks, err := s.readTasks(pid); err != nil {
			s.partial(snap, process.FieldTasks, "task", err)
		} else {
			snap.Tasks = tasks
		}
	}
	return snap, nil
}

func (s *Source) partial(snap *process.Snapshot, f process.Fields, file string, err error) {
	snap.Read &^= f
	s.logger.Debug("partial process read",
		slog.Int("pid", int(snap.PID)),
		slog.String("file", file),
		slog.Any("err", err))
}

// readStat reads the stat line through h when given. A cached handle goes
// stale once its process exits (reads fail with ESRCH) while the PID may
// already name another process, so any handle failure retries uncached.
func (s *Source) readStat(pid process.PID, h process.Handle) (stat, error) {
	var (
		b   []byte
		err error
	)
	if h != nil {
		b, err = readAt(h)
	}
	if h == nil || err != nil {
		b, err = os.ReadFile(s.path(pid, "stat"))
	}
	if err != nil {
		return stat{}, classify(pid, err)
	}
	st, err := parseStat(b)
	if err != nil {
		return stat{}, fmt.Errorf("%w: pid %d: %w", process.ErrMalformedData, pid, err)
	}
	return st, nil
}

func (s *Source) readUser(p procfs.Proc) (process.User, error) {
	st, err := p.NewStatus()
	if err != nil {
		return process.User{}, err
	}
	id, err := statusIDs(st)
	if err != nil {
		return process.User{}, err
	}
	return process.User{
		UserID:           id.uid,
		EffectiveUserID:  id.euid,
		GroupID:          id.gid,
		EffectiveGroupID: id.egid,
		Name:             s.users.name(id.uid),
	}, nil
}

// readTasks lists the tasks of pid in ascending order. The main thread is
// listed too.
func (s *Source) readTasks(pid process.PID) ([]process.PID, error) {
	threads, err := s.fs.AllThreads(int(pid))
	if err != nil {
		return nil, err
	}
	out := make([]process.PID, 0, len(threads))
	for _, t := range threads {
		out = append(out, process.PID(t.PID))
	}
	slices.Sort(out)
	return out, nil
}

func (s *Source) startTime(ticks uint64) time.Time {
	return s.boot.Add(time.Duration(ticks) * time.Second / time.Duration(s.clkTck))
}

func (s *Source) path(pid process.PID, elem ...string) string {
	return filepath.Join(append([]string{s.root, strconv.Itoa(int(pid))}, elem...)...)
}

// readAt reads a whole proc file through a positioned read at offset 0.
func readAt(r io.ReaderAt) ([]byte, error) {
	buf := make([]byte, 512)
	for {
		n, err := r.ReadAt(buf, 0)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if n < len(buf) {
			return buf[:n], nil
		}
		buf = make([]byte, 2*len(buf))
	}
}

// classify maps an OS error onto the process error kinds.
func classify(pid process.PID, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: pid %d: %w", process.ErrNotFound, pid, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: pid %d: %w", process.ErrPermissionDenied, pid, err)
	default:
		return fmt.Errorf("%w: pid %d: %w", process.ErrTransientRead, pid, err)
	}
}
