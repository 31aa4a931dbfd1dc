package util

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrBadPID is returned by ParsePIDs for arguments that are neither a PID
// nor a PID..PID range.
var ErrBadPID = errors.New("util: bad pid argument")

// maxRange caps a single PID..PID argument.
const maxRange = 1 << 16

type EMA struct {
	alpha, prev float64
	ok          bool
}

func NewEMA(alpha float64) *EMA { return &EMA{alpha: Clamp01(alpha)} }
func (e *EMA) Next(v float64) float64 {
	if !e.ok {
		e.prev, e.ok = v, true
		return v
	}
	e.prev = e.alpha*v + (1-e.alpha)*e.prev
	return e.prev
}

func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	// counter wrapped or prev unset
	return 0
}

func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// Clamp bounds x to [lo, hi]. NaN maps to lo.
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func Clamp01(x float64) float64 { return Clamp(x, 0, 1) }

func Pow(a, b float64) float64 {
	if a <= 0 {
		return 0
	}
	return math.Exp(b * math.Log(a))
}

func FmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

// ParsePIDs expands CLI arguments of the form "123" or "100..120" into a
// de-duplicated PID list, preserving first-seen order.
func ParsePIDs(args []string) ([]int, error) {
	seen := make(map[int]struct{})
	var out []int
	add := func(pid int) {
		if _, ok := seen[pid]; ok {
			return
		}
		seen[pid] = struct{}{}
		out = append(out, pid)
	}

	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(arg, "..")
		first, err := strconv.Atoi(lo)
		if err != nil || first <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadPID, arg)
		}
		if !isRange {
			add(first)
			continue
		}
		last, err := strconv.Atoi(hi)
		if err != nil || last < first || last-first > maxRange {
			return nil, fmt.Errorf("%w: %q", ErrBadPID, arg)
		}
		for pid := first; pid <= last; pid++ {
			add(pid)
		}
	}
	return out, nil
}
