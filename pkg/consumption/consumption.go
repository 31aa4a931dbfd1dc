package consumption

import (
	"math"

	"github.com/ja7ad/sysinfo/pkg/system/util"
)

// minUsage is the system usage below which nothing is attributed to the
// group: the share up/uvm is undefined there.
const minUsage = 1e-12

// Accumulator applies the power model to consecutive Samples and keeps the
// cumulative energy and per-component averages.
type Accumulator struct {
	cfg Config

	energyCumJ float64
	count      int
	sum        Result
}

// New creates an accumulator. A nil cfg selects the default coefficients,
// otherwise cfg is merged over them, see Config.merge.
func New(cfg *Config) *Accumulator {
	return &Accumulator{cfg: _defaultConfig().merge(cfg)}
}

// merge overlays o on c:
//   - PIdle, PMax, Gamma, ER and EW override only when > 0
//   - EMemRSS overrides when >= 0, so zero disables the RAM term
//   - Alpha overrides when in [0,1]
//
// PMax is raised to PIdle when it is lower.
func (c *Config) merge(o *Config) Config {
	m := *c
	if o == nil {
		return m
	}
	for _, f := range []struct{ src, dst *float64 }{
		{&o.PIdle, &m.PIdle},
		{&o.PMax, &m.PMax},
		{&o.Gamma, &m.Gamma},
		{&o.ER, &m.ER},
		{&o.EW, &m.EW},
	} {
		if *f.src > 0 {
			*f.dst = *f.src
		}
	}
	if o.EMemRSS >= 0 {
		m.EMemRSS = o.EMemRSS
	}
	if o.Alpha >= 0 && o.Alpha <= 1 {
		m.Alpha = o.Alpha
	}
	m.PMax = math.Max(m.PMax, m.PIdle)
	return m
}

// Config returns the merged coefficients in use.
func (a *Accumulator) Config() Config { return a.cfg }

// Apply runs the model on one sample, adds P_total*dt to the cumulative
// energy and returns the power split:
//
//	P_cpu  = (up/uvm) * (PMax-PIdle) * uvm^Gamma
//	P_disk = (ER*read + EW*write) / dt
//	P_ram  = EMemRSS*|ΔRSS| / dt
//	P_idle = Alpha * PIdle * (up/uvm)
func (a *Accumulator) Apply(s Sample) Result {
	uvm := util.Clamp01(s.SystemUsage)
	up := util.Clamp01(s.ProcessUsage)
	dt := math.Max(s.Interval.Seconds(), 1e-6)

	var r Result
	if uvm > minUsage {
		share := up / uvm
		r.PCPU = share * (a.cfg.PMax - a.cfg.PIdle) * util.Pow(uvm, a.cfg.Gamma)
		if a.cfg.Alpha > 0 {
			r.PIdleShare = a.cfg.Alpha * a.cfg.PIdle * util.Clamp01(share)
		}
	}
	r.PDisk = (a.cfg.ER*float64(s.ReadBytes) + a.cfg.EW*float64(s.WriteBytes)) / dt
	r.PRAM = a.cfg.EMemRSS * float64(s.RSSChurnBytes) / dt
	r.PTotal = r.PCPU + r.PDisk + r.PRAM + r.PIdleShare

	a.energyCumJ += r.PTotal * dt
	a.count++
	a.sum.PCPU += r.PCPU
	a.sum.PDisk += r.PDisk
	a.sum.PRAM += r.PRAM
	a.sum.PIdleShare += r.PIdleShare
	a.sum.PTotal += r.PTotal
	return r
}

// EnergyCumJ returns cumulative energy in Joules.
func (a *Accumulator) EnergyCumJ() float64 { return a.energyCumJ }

// Samples returns how many samples were applied since creation or Reset.
func (a *Accumulator) Samples() int { return a.count }

// Averages returns average powers over all applied samples.
func (a *Accumulator) Averages() Result {
	if a.count == 0 {
		return Result{}
	}
	n := float64(a.count)
	return Result{
		PCPU:       a.sum.PCPU / n,
		PDisk:      a.sum.PDisk / n,
		PRAM:       a.sum.PRAM / n,
		PIdleShare: a.sum.PIdleShare / n,
		PTotal:     a.sum.PTotal / n,
	}
}

// Reset drops the cumulative energy and averages, keeping the coefficients.
func (a *Accumulator) Reset() {
	a.energyCumJ, a.count, a.sum = 0, 0, Result{}
}
