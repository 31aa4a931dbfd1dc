// Package sysinfo is the entry point of the module: a System ties the
// process table to the procfs source and to the host metric categories.
package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/ja7ad/sysinfo/pkg/process"
	"github.com/ja7ad/sysinfo/pkg/system/host"
	"github.com/ja7ad/sysinfo/pkg/system/usage"
)

// ErrUnsupported is returned by New on platforms without a process source.
var ErrUnsupported = errors.New("sysinfo: no process source for this platform")

// systemTimer is implemented by sources that can also read aggregate CPU
// times, such as proc.Source.
type systemTimer interface {
	SystemTimes() (usage.Times, error)
}

// System is a handle on the local machine. Refresh methods update it in
// place; accessors return what the last refresh saw.
type System struct {
	src       process.Source
	refresher *process.Refresher
	host      *host.Host
	logger    *slog.Logger

	mu       sync.Mutex
	hasTimes bool
	times    usage.Times
	global   float64
}

// New opens the process source and returns a System with nothing read yet.
func New(opts ...Option) (*System, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	src, clkTck := o.src, 0
	if src == nil {
		var err error
		if src, clkTck, err = defaultSource(o); err != nil {
			return nil, fmt.Errorf("sysinfo: %w", err)
		}
	}

	return &System{
		src: src,
		refresher: process.NewRefresher(src, &process.Config{
			Workers:    o.workers,
			Governor:   o.gov,
			ClockTicks: clkTck,
			Logger:     o.logger,
		}),
		host:   host.New(o.logger),
		logger: o.logger,
	}, nil
}

// RefreshProcesses reconciles the whole process table. With kind.CPU set the
// global CPU usage is refreshed over the same interval.
func (s *System) RefreshProcesses(kind process.RefreshKind) (int, error) {
	n, err := s.refresher.RefreshAll(kind)
	if err != nil {
		return n, err
	}
	if kind.CPU {
		s.RefreshGlobalCPU()
	}
	return n, nil
}

// RefreshProcessesSome reconciles only pids and never removes a record.
func (s *System) RefreshProcessesSome(pids []process.PID, kind process.RefreshKind) (int, error) {
	return s.refresher.RefreshSome(pids, kind)
}

// RefreshAll refreshes every process with every toggle on, then every host
// category. Failures of both are returned together.
func (s *System) RefreshAll(ctx context.Context) error {
	var result *multierror.Error
	if _, err := s.RefreshProcesses(process.Everything()); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.host.RefreshAll(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// RefreshGlobalCPU reads the aggregate CPU times. The usage is computed
// against the previous reading. Sources without aggregate times leave it 0.
func (s *System) RefreshGlobalCPU() {
	st, ok := s.src.(systemTimer)
	if !ok {
		return
	}
	cur, err := st.SystemTimes()
	if err != nil {
		s.logger.Debug("read system cpu times", slog.Any("err", err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasTimes {
		s.global = usage.Global(s.times, cur)
	}
	s.times, s.hasTimes = cur, true
}

// GlobalCPUUsage is the machine-wide CPU usage in [0, 100] between the last
// two CPU refreshes of the process table. It is 0 until there were two.
func (s *System) GlobalCPUUsage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.global
}

// Process returns the record of pid.
func (s *System) Process(pid process.PID) (*process.Process, bool) {
	return s.refresher.Table().Get(pid)
}

// Processes returns every record ordered by PID.
func (s *System) Processes() []*process.Process {
	var out []*process.Process
	s.refresher.Table().Range(func(p *process.Process) bool {
		out = append(out, p)
		return true
	})
	slices.SortFunc(out, byPID)
	return out
}

// ProcessesByName returns the records whose name contains substr, ordered
// by PID.
func (s *System) ProcessesByName(substr string) []*process.Process {
	var out []*process.Process
	s.refresher.Table().Range(func(p *process.Process) bool {
		if strings.Contains(p.Name(), substr) {
			out = append(out, p)
		}
		return true
	})
	slices.SortFunc(out, byPID)
	return out
}

// Children returns the direct children of pid, ordered by PID.
func (s *System) Children(pid process.PID) []process.PID {
	return s.refresher.Table().Children(pid)
}

// Table exposes the underlying process table.
func (s *System) Table() *process.Table { return s.refresher.Table() }

// Host returns the host metric categories.
func (s *System) Host() *host.Host { return s.host }

// Close releases every cached process handle.
func (s *System) Close() error { return s.refresher.Close() }

func byPID(a, b *process.Process) int { return int(a.PID()) - int(b.PID()) }
