package host

import (
	"context"
	"sync"
	"time"

	gohost "github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"

	"github.com/ja7ad/sysinfo/pkg/system/cgroup"
)

// LoadAvg is the 1, 5 and 15 minute load average.
type LoadAvg struct {
	One, Five, Fifteen float64
}

// InfoStat describes the host itself.
type InfoStat struct {
	Hostname        string
	OS              string
	Platform        string
	PlatformVersion string
	KernelVersion   string
	Arch            string
	BootTime        time.Time
	Uptime          time.Duration
	Load            LoadAvg
	Cgroup          cgroup.Version
	CgroupDetail    string
}

type Info struct {
	mu   sync.RWMutex
	stat InfoStat

	info   func(ctx context.Context) (*gohost.InfoStat, error)
	avg    func(ctx context.Context) (*load.AvgStat, error)
	detect func() (cgroup.Version, string, error)
}

func NewInfo() *Info {
	return &Info{
		info:   gohost.InfoWithContext,
		avg:    load.AvgWithContext,
		detect: cgroup.Detect,
	}
}

// Refresh reads host information and the load average. The cgroup mode is
// best effort and stays Unsupported where mountinfo is not available.
func (i *Info) Refresh(ctx context.Context) error {
	hi, err := i.info(ctx)
	if err != nil {
		return err
	}
	avg, err := i.avg(ctx)
	if err != nil {
		return err
	}
	ver, detail, cgErr := i.detect()
	if cgErr != nil {
		ver, detail = cgroup.Unsupported, cgErr.Error()
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.stat = InfoStat{
		Hostname:        hi.Hostname,
		OS:              hi.OS,
		Platform:        hi.Platform,
		PlatformVersion: hi.PlatformVersion,
		KernelVersion:   hi.KernelVersion,
		Arch:            hi.KernelArch,
		BootTime:        time.Unix(int64(hi.BootTime), 0),
		Uptime:          time.Duration(hi.Uptime) * time.Second,
		Load:            LoadAvg{One: avg.Load1, Five: avg.Load5, Fifteen: avg.Load15},
		Cgroup:          ver,
		CgroupDetail:    detail,
	}
	return nil
}

func (i *Info) Stat() InfoStat {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.stat
}
