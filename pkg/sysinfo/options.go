package sysinfo

import (
	"log/slog"

	"github.com/ja7ad/sysinfo/pkg/process"
	"github.com/ja7ad/sysinfo/pkg/system/governor"
)

type options struct {
	workers  int
	gov      *governor.Governor
	logger   *slog.Logger
	procRoot string
	src      process.Source
}

// Option configures New.
type Option func(*options)

// WithWorkers bounds refresh parallelism. 1 refreshes sequentially.
func WithWorkers(n int) Option { return func(o *options) { o.workers = n } }

// WithGovernor replaces the process-wide handle governor.
func WithGovernor(g *governor.Governor) Option { return func(o *options) { o.gov = g } }

// WithHandleBudget is WithGovernor with a fresh governor of budget handles.
func WithHandleBudget(budget int) Option {
	return func(o *options) { o.gov = governor.New(budget) }
}

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithProcRoot reads processes from a procfs mount other than /proc.
func WithProcRoot(root string) Option { return func(o *options) { o.procRoot = root } }

// WithSource reads processes from src instead of procfs.
func WithSource(src process.Source) Option { return func(o *options) { o.src = src } }
