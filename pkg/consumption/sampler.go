package consumption

import (
	"time"

	"github.com/ja7ad/sysinfo/pkg/process"
	"github.com/ja7ad/sysinfo/pkg/sysinfo"
	"github.com/ja7ad/sysinfo/pkg/system/usage"
	"github.com/ja7ad/sysinfo/pkg/system/util"
	"github.com/ja7ad/sysinfo/pkg/types"
)

// sampleKind is what a group sample needs from each process.
var sampleKind = process.NewRefreshKind().WithCPU().WithMemory().WithDiskUsage()

// Sampler turns process table refreshes into Samples for a group of
// processes:
//   - SystemUsage from the machine-wide CPU usage, optionally EMA-smoothed
//   - ProcessUsage as the group's summed CPU usage over all cores
//   - Read/WriteBytes as the summed per-process I/O deltas
//   - RSSChurnBytes as the summed |ΔRSS| per process
//
// The first Sample of a process only sets its baselines, so its
// contributions are zero.
type Sampler struct {
	sys   *sysinfo.System
	ema   *util.EMA
	cores int
	rss   map[process.PID]rssMark
}

// rssMark is the last RSS seen for a process. A PID whose identity changed
// names another process and starts a new baseline.
type rssMark struct {
	id  process.Identity
	rss types.Bytes
}

// NewSampler returns a Sampler over sys. alpha in (0,1] enables EMA
// smoothing of SystemUsage; 0 disables it.
func NewSampler(sys *sysinfo.System, alpha float64) *Sampler {
	s := &Sampler{
		sys:   sys,
		cores: usage.LogicalCores(),
		rss:   make(map[process.PID]rssMark),
	}
	if alpha > 0 {
		s.ema = util.NewEMA(alpha)
	}
	return s
}

// Sample refreshes pids and the global CPU usage, then aggregates them.
// dt is the interval since the previous Sample.
func (s *Sampler) Sample(pids []process.PID, dt time.Duration) (Sample, error) {
	if len(pids) == 0 {
		return Sample{}, ErrNoPIDs
	}
	if dt <= 0 {
		return Sample{}, ErrBadDt
	}
	if _, err := s.sys.RefreshProcessesSome(pids, sampleKind); err != nil {
		return Sample{}, err
	}
	s.sys.RefreshGlobalCPU()

	uvm := s.sys.GlobalCPUUsage() / 100
	if s.ema != nil {
		uvm = s.ema.Next(uvm)
	}

	var (
		cpuPct   float64
		read     types.Bytes
		write    types.Bytes
		rssChurn types.Bytes
		alive    int
	)
	for _, pid := range pids {
		p, ok := s.sys.Process(pid)
		if !ok || !p.Exists() {
			delete(s.rss, pid)
			continue
		}
		alive++
		cpuPct += p.CPUUsage()
		du := p.DiskUsage()
		read += du.ReadBytes
		write += du.WrittenBytes

		cur := rssMark{id: p.Identity(), rss: p.Memory()}
		if prev, ok := s.rss[pid]; ok && prev.id == cur.id {
			rssChurn += types.Delta(cur.rss, prev.rss) + types.Delta(prev.rss, cur.rss)
		}
		s.rss[pid] = cur
	}
	if alive == 0 {
		return Sample{}, ErrAllExited
	}

	return Sample{
		Interval:      dt,
		SystemUsage:   util.Clamp01(uvm),
		ProcessUsage:  util.Clamp01(util.SafeDiv(cpuPct, float64(s.cores)*100)),
		ReadBytes:     read,
		WriteBytes:    write,
		RSSChurnBytes: rssChurn,
	}, nil
}
