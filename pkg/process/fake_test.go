package process

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ja7ad/sysinfo/pkg/system/governor"
	"github.com/ja7ad/sysinfo/pkg/system/usage"
)

type fakeProc struct {
	identity Identity
	parent   PID
	name     string
	status   byte
	ticks    usage.Ticks
	memory   Memory
	io       IO
	cmd      []string
	environ  []string
	cwd      string
	exe      string
	user     User
	tasks    []PID
	hidden   bool  // alive but not listed by Enumerate (tasks)
	dead     bool  // listed but no longer alive
	err      error // returned by every read

	// snapErr fails only ReadSnapshot; snapIdentity, when set, is what
	// ReadSnapshot reports while ReadIdentity still reports identity.
	snapErr      error
	snapIdentity Identity
}

type fakeSource struct {
	mu      sync.Mutex
	procs   map[PID]*fakeProc
	enumErr error
	wants   map[PID]Fields
	opened  atomic.Int64
	closed  atomic.Int64
	cached  atomic.Int64 // reads served through a handle
}

func newFakeSource() *fakeSource {
	return &fakeSource{procs: make(map[PID]*fakeProc), wants: make(map[PID]Fields)}
}

func (s *fakeSource) set(pid PID, p *fakeProc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procs[pid] = p
}

func (s *fakeSource) update(pid PID, fn func(*fakeProc)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.procs[pid])
}

func (s *fakeSource) remove(pid PID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.procs, pid)
}

func (s *fakeSource) lastWant(pid PID) Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wants[pid]
}

func (s *fakeSource) Enumerate() ([]PID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enumErr != nil {
		return nil, s.enumErr
	}
	var out []PID
	for pid, p := range s.procs {
		if !p.hidden {
			out = append(out, pid)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *fakeSource) lookup(pid PID) (fakeProc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[pid]
	if !ok {
		return fakeProc{}, fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	if p.err != nil {
		return fakeProc{}, p.err
	}
	return *p, nil
}

func (s *fakeSource) ReadIdentity(pid PID, h Handle) (Identity, error) {
	p, err := s.lookup(pid)
	if err != nil {
		return 0, err
	}
	if h != nil {
		s.cached.Add(1)
	}
	return p.identity, nil
}

func (s *fakeSource) ReadSnapshot(pid PID, h Handle, want Fields) (*Snapshot, error) {
	p, err := s.lookup(pid)
	if err != nil {
		return nil, err
	}
	if p.snapErr != nil {
		return nil, p.snapErr
	}
	if h != nil {
		s.cached.Add(1)
	}
	s.mu.Lock()
	s.wants[pid] = want
	s.mu.Unlock()

	id := p.identity
	if p.snapIdentity != 0 {
		id = p.snapIdentity
	}
	snap := &Snapshot{
		PID:       pid,
		Parent:    p.parent,
		Identity:  id,
		Name:      p.name,
		Status:    StatusFromCode(p.status),
		StartTime: time.Unix(int64(id), 0),
		Read:      want,
	}
	if want.Has(FieldCPU) {
		snap.Ticks = p.ticks
	}
	if want.Has(FieldMemory) {
		snap.Memory = p.memory
	}
	if want.Has(FieldDiskUsage) {
		snap.IO = p.io
	}
	if want.Has(FieldCmd) {
		snap.Cmd = slices.Clone(p.cmd)
	}
	if want.Has(FieldEnviron) {
		snap.Environ = slices.Clone(p.environ)
	}
	if want.Has(FieldCwd) {
		snap.Cwd = p.cwd
	}
	if want.Has(FieldExe) {
		snap.Exe = p.exe
	}
	if want.Has(FieldUser) {
		snap.User = p.user
	}
	if want.Has(FieldTasks) {
		snap.Tasks = slices.Clone(p.tasks)
	}
	return snap, nil
}

func (s *fakeSource) ProbeAlive(pid PID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[pid]
	return ok && !p.dead
}

func (s *fakeSource) Open(pid PID) (Handle, error) {
	if _, err := s.lookup(pid); err != nil {
		return nil, err
	}
	s.opened.Add(1)
	return &fakeHandle{src: s}, nil
}

type fakeHandle struct {
	src *fakeSource
}

func (h *fakeHandle) ReadAt([]byte, int64) (int, error) { return 0, io.EOF }

func (h *fakeHandle) Close() error {
	h.src.closed.Add(1)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	src   *fakeSource
	gov   *governor.Governor
	clock *fakeClock
	r     *Refresher
}

func newHarness(workers, budget int) *harness {
	h := &harness{
		src:   newFakeSource(),
		gov:   governor.New(budget),
		clock: &fakeClock{now: time.Unix(1_700_000_000, 0)},
	}
	h.r = NewRefresher(h.src, &Config{
		Workers:    workers,
		Governor:   h.gov,
		ClockTicks: 100,
		Computer:   usage.New(100, 4),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:        h.clock.Now,
	})
	return h
}
