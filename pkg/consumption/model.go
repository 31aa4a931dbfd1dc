package consumption

import (
	"time"

	"github.com/ja7ad/sysinfo/pkg/types"
)

// Config holds model coefficients.
// Units:
//   - PIdle/PMax: Watts
//   - Gamma: dimensionless (CPU nonlinearity)
//   - ER/EW: Joules per byte (disk read/write)
//   - EMemRSS: Joules per byte of RSS churn (RAM proxy)
//   - Alpha: fraction of idle to charge to process share [0..1]
type Config struct {
	PIdle   float64
	PMax    float64
	Gamma   float64
	ER      float64
	EW      float64
	EMemRSS float64
	Alpha   float64
}

// _defaultConfig returns a Config pre-filled with reasonable default coefficients.
func _defaultConfig() *Config {
	return &Config{
		PIdle:   5.0,    // W at idle
		PMax:    20.0,   // W at full utilization
		Gamma:   1.3,    // CPU curve exponent
		ER:      4.8e-8, // J/byte disk read
		EW:      9.5e-8, // J/byte disk write
		EMemRSS: 3e-10,  // J/byte RSS churn
		Alpha:   0.0,    // fraction of idle to distribute
	}
}

// Sample is the activity of a group of processes over one interval.
type Sample struct {
	Interval time.Duration
	// Utilizations in [0,1]: the whole machine and the group's share of it.
	SystemUsage  float64
	ProcessUsage float64
	// Byte deltas for this interval
	ReadBytes     types.Bytes
	WriteBytes    types.Bytes
	RSSChurnBytes types.Bytes // sum of |ΔRSS| per process
}

// Result is the instantaneous power breakdown for one sample.
type Result struct {
	PCPU   float64 // W
	PDisk  float64 // W
	PRAM   float64 // W
	// PIdleShare is the part of idle power charged to the group, zero
	// unless Alpha > 0.
	PIdleShare float64 // W
	PTotal     float64 // W
}
