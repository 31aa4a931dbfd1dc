package process

import (
	"slices"
	"time"

	"github.com/ja7ad/sysinfo/pkg/system/usage"
	"github.com/ja7ad/sysinfo/pkg/types"
)

// DiskUsage holds cumulative and per-refresh I/O byte counters.
type DiskUsage struct {
	TotalReadBytes    types.Bytes
	ReadBytes         types.Bytes // since the previous refresh
	TotalWrittenBytes types.Bytes
	WrittenBytes      types.Bytes // since the previous refresh
}

// Process is one tracked process or task. Records are owned by a Table and
// must not be read while a refresh of that table is running.
type Process struct {
	pid        PID
	parent     PID
	identity   Identity
	threadKind ThreadKind

	name      string
	status    Status
	startTime time.Time
	runTime   time.Duration

	// CPU bookkeeping: last is the most recent tick sample, prevTicks the
	// one before it.
	last      *usage.Sample
	prevTicks usage.Ticks
	cpuUsage  float64
	cpuTime   time.Duration

	memory    Memory
	diskUsage DiskUsage
	ioSeen    bool

	cmd     []string
	environ []string
	exe     string
	cwd     string
	root    string
	user    User
	hasUser bool
	tasks   []PID

	handle  *cachedHandle
	touched bool
	exists  bool
}

// applyEnv carries what turning a Snapshot into record state needs besides
// the snapshot itself.
type applyEnv struct {
	now      time.Time
	computer *usage.Computer
	clkTck   int
}

// newProcess builds a fresh record: no counters carry over from anything
// previously stored under the same PID.
func newProcess(snap *Snapshot, h *cachedHandle, env applyEnv) *Process {
	p := &Process{
		pid:      snap.PID,
		identity: snap.Identity,
		handle:   h,
	}
	p.apply(snap, env)
	return p
}

// apply copies the snapshot into the record. Fields the snapshot did not
// read keep their previous values.
func (p *Process) apply(snap *Snapshot, env applyEnv) {
	p.parent = snap.Parent
	p.name = snap.Name
	p.status = snap.Status
	p.startTime = snap.StartTime
	p.runTime = 0
	if !snap.StartTime.IsZero() && env.now.After(snap.StartTime) {
		p.runTime = env.now.Sub(snap.StartTime)
	}

	if snap.Read.Has(FieldCPU) {
		cur := usage.Sample{Ticks: snap.Ticks, At: env.now}
		p.cpuUsage = env.computer.Process(p.last, cur)
		if p.last != nil {
			p.prevTicks = p.last.Ticks
		} else {
			p.prevTicks = cur.Ticks
		}
		p.last = &cur
		if env.clkTck > 0 {
			p.cpuTime = time.Duration(snap.Ticks.Total()) * time.Second / time.Duration(env.clkTck)
		}
	}
	if snap.Read.Has(FieldMemory) {
		p.memory = snap.Memory
	}
	if snap.Read.Has(FieldDiskUsage) {
		if p.ioSeen {
			p.diskUsage.ReadBytes = types.Delta(snap.IO.ReadBytes, p.diskUsage.TotalReadBytes)
			p.diskUsage.WrittenBytes = types.Delta(snap.IO.WrittenBytes, p.diskUsage.TotalWrittenBytes)
		}
		p.diskUsage.TotalReadBytes = snap.IO.ReadBytes
		p.diskUsage.TotalWrittenBytes = snap.IO.WrittenBytes
		p.ioSeen = true
	}
	if snap.Read.Has(FieldCmd) {
		p.cmd = snap.Cmd
	}
	if snap.Read.Has(FieldEnviron) {
		p.environ = snap.Environ
	}
	if snap.Read.Has(FieldCwd) {
		p.cwd = snap.Cwd
	}
	if snap.Read.Has(FieldRoot) {
		p.root = snap.Root
	}
	if snap.Read.Has(FieldExe) {
		p.exe = snap.Exe
	}
	if snap.Read.Has(FieldUser) {
		p.user = snap.User
		p.hasUser = true
	}
	if snap.Read.Has(FieldTasks) {
		p.tasks = snap.Tasks
	}

	p.touched = true
	p.exists = true
}

// keep marks a record whose read failed as seen this cycle. Nothing was
// measured, so the per-interval values drop to zero; the next successful
// read measures from the last stored sample.
func (p *Process) keep() {
	p.touched = true
	p.cpuUsage = 0
	p.diskUsage.ReadBytes = 0
	p.diskUsage.WrittenBytes = 0
}

// adopt attaches h when the record has no handle yet and closes it
// otherwise.
func (p *Process) adopt(h *cachedHandle) {
	switch {
	case h == nil:
	case p.handle == nil:
		p.handle = h
	default:
		_ = h.Close()
	}
}

// close releases the cached handle, if any, returning its slot to the
// governor.
func (p *Process) close() error {
	if p.handle == nil {
		return nil
	}
	err := p.handle.Close()
	p.handle = nil
	return err
}

// PID returns the process identifier.
func (p *Process) PID() PID { return p.pid }

// Parent returns the parent identifier. ok is false when it is unknown.
func (p *Process) Parent() (pid PID, ok bool) { return p.parent, p.parent > 0 }

// Identity returns the identity marker the record was created with.
func (p *Process) Identity() Identity { return p.identity }

// ThreadKind reports whether the record is a process or a task.
func (p *Process) ThreadKind() ThreadKind { return p.threadKind }

func (p *Process) Name() string   { return p.name }
func (p *Process) Status() Status { return p.status }

// StartTime is the wall-clock time the process started.
func (p *Process) StartTime() time.Time { return p.startTime }

// RunTime is how long the process had been running at its last refresh.
func (p *Process) RunTime() time.Duration { return p.runTime }

// CPUUsage is the usage percentage over the last refresh interval, relative
// to one core. It is 0 on the first observation of a process.
func (p *Process) CPUUsage() float64 { return p.cpuUsage }

// AccumulatedCPUTime is the total user+kernel time consumed so far.
func (p *Process) AccumulatedCPUTime() time.Duration { return p.cpuTime }

// Ticks returns the previous and current tick samples.
func (p *Process) Ticks() (prev, cur usage.Ticks) {
	if p.last == nil {
		return usage.Ticks{}, usage.Ticks{}
	}
	return p.prevTicks, p.last.Ticks
}

// Memory returns the resident set size.
func (p *Process) Memory() types.Bytes { return p.memory.Resident }

// VirtualMemory returns the virtual memory size.
func (p *Process) VirtualMemory() types.Bytes { return p.memory.Virtual }

func (p *Process) DiskUsage() DiskUsage { return p.diskUsage }

func (p *Process) Cmd() []string     { return slices.Clone(p.cmd) }
func (p *Process) Environ() []string { return slices.Clone(p.environ) }
func (p *Process) Exe() string       { return p.exe }
func (p *Process) Cwd() string       { return p.cwd }
func (p *Process) Root() string      { return p.root }

// User returns the owner identifiers. ok is false until they were read.
func (p *Process) User() (u User, ok bool) { return p.user, p.hasUser }

func (p *Process) UserID() uint32           { return p.user.UserID }
func (p *Process) EffectiveUserID() uint32  { return p.user.EffectiveUserID }
func (p *Process) GroupID() uint32          { return p.user.GroupID }
func (p *Process) EffectiveGroupID() uint32 { return p.user.EffectiveGroupID }

// Tasks returns the task identifiers last read for this process.
func (p *Process) Tasks() []PID { return slices.Clone(p.tasks) }

// Exists is false for a record kept in the table after its process could
// no longer be found by a subset refresh.
func (p *Process) Exists() bool { return p.exists }

// Touched reports whether the record was reconciled in the current pass.
func (p *Process) Touched() bool { return p.touched }

// Cached reports whether the record holds an open handle.
func (p *Process) Cached() bool { return p.handle != nil }
