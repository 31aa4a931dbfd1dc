package host

import (
	"context"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/ja7ad/sysinfo/pkg/system/usage"
)

// CPU is one logical core.
type CPU struct {
	Name      string
	Vendor    string
	Brand     string
	Frequency float64 // MHz
	Usage     float64 // percent over the last refresh interval
}

// CPUs tracks per-core and global usage. Usage is computed from two
// consecutive readings, so it is 0 after the first Refresh.
type CPUs struct {
	mu     sync.RWMutex
	cpus   []CPU
	global float64
	prev   map[string]usage.Times
	hasAll bool
	all    usage.Times

	times func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)
	info  func(ctx context.Context) ([]cpu.InfoStat, error)
}

func NewCPUs() *CPUs {
	return &CPUs{
		prev:  make(map[string]usage.Times),
		times: cpu.TimesWithContext,
		info:  cpu.InfoWithContext,
	}
}

func (c *CPUs) Refresh(ctx context.Context) error {
	total, err := c.times(ctx, false)
	if err != nil {
		return err
	}
	per, err := c.times(ctx, true)
	if err != nil {
		return err
	}
	// brand and frequency are best effort, some platforms do not expose them
	info, _ := c.info(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(total) > 0 {
		cur := toTimes(total[0])
		if c.hasAll {
			c.global = usage.Global(c.all, cur)
		}
		c.all, c.hasAll = cur, true
	}

	cpus := make([]CPU, len(per))
	seen := make(map[string]usage.Times, len(per))
	for i, t := range per {
		cur := toTimes(t)
		cpus[i].Name = t.CPU
		if prev, ok := c.prev[t.CPU]; ok {
			cpus[i].Usage = usage.Global(prev, cur)
		}
		seen[t.CPU] = cur
		if i < len(info) {
			cpus[i].Vendor = info[i].VendorID
			cpus[i].Brand = info[i].ModelName
			cpus[i].Frequency = info[i].Mhz
		}
	}
	c.cpus = cpus
	c.prev = seen
	return nil
}

// List returns the cores as of the last refresh.
func (c *CPUs) List() []CPU {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]CPU, len(c.cpus))
	copy(out, c.cpus)
	return out
}

// GlobalUsage is the machine-wide usage percentage in [0, 100].
func (c *CPUs) GlobalUsage() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.global
}

func toTimes(t cpu.TimesStat) usage.Times {
	return usage.Times{
		Busy: t.User + t.Nice + t.System + t.Irq + t.Softirq + t.Steal,
		Idle: t.Idle + t.Iowait,
	}
}
