// Package usage turns scheduler tick counters into CPU usage percentages.
//
// Per-process usage is relative to one logical core: a process saturating
// two cores reports 200. Values are clamped to [0, cores*100] so counter
// wraparound, a reused PID or a skewed clock never produce spikes.
// System-wide usage is relative to the whole machine and lies in [0, 100].
package usage

import (
	"runtime"
	"time"

	"github.com/tklauser/numcpus"

	"github.com/ja7ad/sysinfo/pkg/system/util"
)

// Ticks are cumulative scheduler ticks spent in user and kernel mode.
type Ticks struct {
	User   uint64
	System uint64
}

// Total returns User+System.
func (t Ticks) Total() uint64 { return t.User + t.System }

// Sample is a tick reading taken at a wall-clock instant.
type Sample struct {
	Ticks Ticks
	At    time.Time
}

// Times are cumulative system-wide busy and idle seconds, as reported by
// /proc/stat or gopsutil cpu.Times.
type Times struct {
	Busy float64
	Idle float64
}

// Computer converts tick deltas into percentages.
type Computer struct {
	clkTck float64
	cores  int
}

// New returns a Computer for the given scheduler tick rate (ticks per
// second) and logical core count. Non-positive values fall back to 100 Hz
// and LogicalCores().
func New(clkTck, cores int) *Computer {
	if clkTck <= 0 {
		clkTck = 100
	}
	if cores <= 0 {
		cores = LogicalCores()
	}
	return &Computer{clkTck: float64(clkTck), cores: cores}
}

// Cores returns the logical core count used for clamping.
func (c *Computer) Cores() int { return c.cores }

// Max returns the upper usage bound, cores*100.
func (c *Computer) Max() float64 { return float64(c.cores) * 100 }

// ElapsedTicks converts a wall-clock interval into scheduler ticks.
func (c *Computer) ElapsedTicks(d time.Duration) float64 {
	return d.Seconds() * c.clkTck
}

// Process computes usage of one process between two samples. A nil prev
// means this is the first observation of the process: the result is 0 and
// cur only serves as the baseline for the next call.
func (c *Computer) Process(prev *Sample, cur Sample) float64 {
	if prev == nil {
		return 0
	}
	elapsed := c.ElapsedTicks(cur.At.Sub(prev.At))
	if elapsed <= 0 {
		return 0
	}
	used := util.DeltaU64(cur.Ticks.User, prev.Ticks.User) +
		util.DeltaU64(cur.Ticks.System, prev.Ticks.System)
	return util.Clamp(float64(used)/elapsed*100, 0, c.Max())
}

// Global computes machine-wide usage from two aggregate readings,
// independent of any process baseline.
func Global(prev, cur Times) float64 {
	busy := cur.Busy - prev.Busy
	idle := cur.Idle - prev.Idle
	if busy < 0 || idle < 0 {
		return 0
	}
	return util.Clamp(util.SafeDiv(busy, busy+idle)*100, 0, 100)
}

// LogicalCores returns the number of online logical CPUs, falling back to
// runtime.NumCPU when the platform does not expose it.
func LogicalCores() int {
	if n, err := numcpus.GetOnline(); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
