//go:build linux

package proc

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ja7ad/sysinfo/pkg/process"
	"github.com/ja7ad/sysinfo/pkg/system/usage"
	"github.com/ja7ad/sysinfo/pkg/types"
)

const allFields = process.FieldCPU | process.FieldMemory | process.FieldDiskUsage |
	process.FieldTasks | process.FieldCmd | process.FieldEnviron | process.FieldCwd |
	process.FieldRoot | process.FieldExe | process.FieldUser

const ioFixture = "rchar: 1000\nwchar: 2000\nsyscr: 10\nsyscw: 20\n" +
	"read_bytes: 4096\nwrite_bytes: 8192\ncancelled_write_bytes: 0\n"

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	p := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

// fixtureRoot builds a minimal procfs tree: pid 42 is complete, pid 7 has
// a garbled stat line.
func fixtureRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "stat", "cpu  100 0 50 800 10 0 0 0 0 0\ncpu0 100 0 50 800 10 0 0 0 0 0\nbtime 1700000000\n")

	writeFile(t, root, "42/stat", statLine)
	writeFile(t, root, "42/status", "Name:\tapp\nUid:\t1000\t1000\t1000\t1000\nGid:\t100\t100\t100\t100\n")
	writeFile(t, root, "42/cmdline", "app\x00--flag\x00")
	writeFile(t, root, "42/environ", "HOME=/root\x00LANG=C\x00")
	writeFile(t, root, "42/io", ioFixture)
	require.NoError(t, os.Symlink("/srv", filepath.Join(root, "42/cwd")))
	require.NoError(t, os.Symlink("/", filepath.Join(root, "42/root")))
	require.NoError(t, os.Symlink("/usr/bin/app", filepath.Join(root, "42/exe")))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "42/task/42"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "42/task/43"), 0o755))

	writeFile(t, root, "7/stat", "7 (broken")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "self"), 0o755))
	return root
}

func newFixtureSource(t *testing.T) *Source {
	t.Helper()
	s, err := NewSource(&Config{Root: fixtureRoot(t), ClockTicks: 100, PageSize: 4096})
	require.NoError(t, err)
	return s
}

func TestClockTicksAndPageSize(t *testing.T) {
	t.Setenv("CLK_TCK", "")
	t.Setenv("PAGE_SIZE", "")
	assert.Greater(t, ClockTicks(), 0, "ClockTicks must be > 0")
	assert.Greater(t, PageSize(), 0, "PageSize must be > 0")

	t.Setenv("CLK_TCK", "250")
	t.Setenv("PAGE_SIZE", "16384")
	assert.Equal(t, 250, ClockTicks())
	assert.Equal(t, 16384, PageSize())
}

func TestSource_Fixture(t *testing.T) {
	s := newFixtureSource(t)
	assert.Equal(t, time.Unix(1700000000, 0), s.BootTime())

	t.Run("enumerate", func(t *testing.T) {
		ids, err := s.Enumerate()
		require.NoError(t, err)
		assert.ElementsMatch(t, []process.PID{7, 42}, ids)
	})

	t.Run("identity", func(t *testing.T) {
		id, err := s.ReadIdentity(42, nil)
		require.NoError(t, err)
		assert.Equal(t, process.Identity(1000), id)
	})

	t.Run("stat_only_snapshot", func(t *testing.T) {
		snap, err := s.ReadSnapshot(42, nil, process.FieldCPU|process.FieldMemory)
		require.NoError(t, err)
		assert.Equal(t, "my (weird) app", snap.Name)
		assert.Equal(t, process.PID(1), snap.Parent)
		assert.Equal(t, process.StatusSleep, snap.Status.Kind)
		assert.Equal(t, time.Unix(1700000010, 0), snap.StartTime)
		assert.Equal(t, usage.Ticks{User: 250, System: 50}, snap.Ticks)
		assert.Equal(t, types.Bytes(256*4096), snap.Memory.Resident)
		assert.Equal(t, types.Bytes(10485760), snap.Memory.Virtual)
		assert.Nil(t, snap.Cmd)
	})

	t.Run("full_snapshot", func(t *testing.T) {
		snap, err := s.ReadSnapshot(42, nil, allFields)
		require.NoError(t, err)
		assert.Equal(t, []string{"app", "--flag"}, snap.Cmd)
		assert.Equal(t, []string{"HOME=/root", "LANG=C"}, snap.Environ)
		assert.Equal(t, "/srv", snap.Cwd)
		assert.Equal(t, "/", snap.Root)
		assert.Equal(t, "/usr/bin/app", snap.Exe)
		assert.Equal(t, types.Bytes(4096), snap.IO.ReadBytes)
		assert.Equal(t, types.Bytes(8192), snap.IO.WrittenBytes)
		assert.Equal(t, uint32(1000), snap.User.UserID)
		assert.Equal(t, uint32(100), snap.User.EffectiveGroupID)
		assert.Equal(t, []process.PID{42, 43}, snap.Tasks)
	})

	t.Run("missing_sub_read_is_left_unread", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(s.root, "42/status")))
		snap, err := s.ReadSnapshot(42, nil, process.FieldUser|process.FieldCmd)
		require.NoError(t, err)
		assert.False(t, snap.Read.Has(process.FieldUser))
		assert.True(t, snap.Read.Has(process.FieldCmd))
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := s.ReadIdentity(7, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, process.ErrMalformedData))
		assert.True(t, errors.Is(err, ErrNoStat))
	})

	t.Run("not_found", func(t *testing.T) {
		_, err := s.ReadSnapshot(999, nil, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, process.ErrNotFound))

		_, err = s.Open(999)
		assert.True(t, errors.Is(err, process.ErrNotFound))
	})

	t.Run("probe", func(t *testing.T) {
		assert.True(t, s.ProbeAlive(42))
		assert.False(t, s.ProbeAlive(999))
		assert.False(t, s.ProbeAlive(0))
	})

	t.Run("system_times", func(t *testing.T) {
		tm, err := s.SystemTimes()
		require.NoError(t, err)
		assert.InDelta(t, 1.5, tm.Busy, 1e-9)
		assert.InDelta(t, 8.1, tm.Idle, 1e-9)
	})
}

func TestSource_CachedHandle(t *testing.T) {
	s := newFixtureSource(t)

	h, err := s.Open(42)
	require.NoError(t, err)
	defer h.Close()

	id, err := s.ReadIdentity(42, h)
	require.NoError(t, err)
	assert.Equal(t, process.Identity(1000), id)

	// a handle to an exited process fails; the read falls back to the path
	id, err = s.ReadIdentity(42, staleHandle{})
	require.NoError(t, err)
	assert.Equal(t, process.Identity(1000), id)
}

type staleHandle struct{}

func (staleHandle) ReadAt([]byte, int64) (int, error) { return 0, unix.ESRCH }
func (staleHandle) Close() error                     { return nil }

func TestReadAt_GrowsBuffer(t *testing.T) {
	long := make([]byte, 3000)
	for i := range long {
		long[i] = 'a'
	}
	f := filepath.Join(t.TempDir(), "big")
	require.NoError(t, os.WriteFile(f, long, 0o644))
	r, err := os.Open(f)
	require.NoError(t, err)
	defer r.Close()

	b, err := readAt(r)
	require.NoError(t, err)
	assert.Len(t, b, 3000)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(1, fs.ErrNotExist), process.ErrNotFound)
	assert.ErrorIs(t, classify(1, unix.ESRCH), process.ErrNotFound)
	assert.ErrorIs(t, classify(1, unix.EACCES), process.ErrPermissionDenied)
	assert.ErrorIs(t, classify(1, unix.EPERM), process.ErrPermissionDenied)
	assert.ErrorIs(t, classify(1, io.ErrUnexpectedEOF), process.ErrTransientRead)
}

func TestSource_Live(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skipf("skipping: /proc not available: %v", err)
	}
	s, err := NewSource(nil)
	require.NoError(t, err)

	me := process.PID(os.Getpid())
	ids, err := s.Enumerate()
	require.NoError(t, err)
	assert.Contains(t, ids, me)
	assert.True(t, s.ProbeAlive(me))

	snap, err := s.ReadSnapshot(me, nil, process.FieldCPU|process.FieldMemory|process.FieldTasks|process.FieldCmd)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Name)
	assert.NotZero(t, snap.Identity)
	assert.Greater(t, snap.Memory.Resident, types.Bytes(0))
	assert.Contains(t, snap.Tasks, me)
	assert.NotEmpty(t, snap.Cmd)
	assert.True(t, snap.StartTime.After(s.BootTime()) || snap.StartTime.Equal(s.BootTime()))

	tm, err := s.SystemTimes()
	require.NoError(t, err)
	assert.Greater(t, tm.Busy+tm.Idle, 0.0)
}
