package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ja7ad/sysinfo/pkg/config"
	"github.com/ja7ad/sysinfo/pkg/sysinfo"
)

type globalOpts struct {
	configPath string
	logLevel   string
	workers    int
	budget     int
	procRoot   string
}

func main() {
	var g globalOpts

	root := &cobra.Command{
		Use:   "sysinfo",
		Short: "Process and host inspection tool",
		Long: `sysinfo keeps a table of every process on a Linux host in sync with
/proc and reports on it: one-shot listings, a refreshing top view with an
optional power/energy estimate for selected PIDs, host hardware and load,
and a Prometheus metrics endpoint.

* GitHub: https://github.com/ja7ad/sysinfo

Examples:
  sysinfo ps --sort cpu --limit 20
  sysinfo top -i 2s 1234 2000..2010 --power --csv out.csv
  sysinfo host
  sysinfo serve --listen :9256`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.IntVarP(&g.workers, "workers", "w", -1, "refresh workers (0 = one per core)")
	pf.IntVar(&g.budget, "handle-budget", -1, "cached file handle budget (0 = disable caching)")
	pf.StringVar(&g.procRoot, "proc-root", "", "procfs mount point")

	root.AddCommand(
		newPsCmd(&g),
		newTopCmd(&g),
		newHostCmd(&g),
		newServeCmd(&g),
	)

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// load reads the config file, applies flag overrides and installs the
// process-wide logger.
func (g *globalOpts) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("workers") {
		cfg.Workers = g.workers
	}
	if flags.Changed("handle-budget") {
		cfg.HandleBudget = g.budget
	}
	if flags.Changed("proc-root") {
		cfg.ProcRoot = g.procRoot
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

// open loads the config and creates the System it describes.
func (g *globalOpts) open(cmd *cobra.Command) (*config.Config, *sysinfo.System, error) {
	cfg, err := g.load(cmd)
	if err != nil {
		return nil, nil, err
	}
	opts := []sysinfo.Option{
		sysinfo.WithWorkers(cfg.Workers),
		sysinfo.WithProcRoot(cfg.ProcRoot),
		sysinfo.WithLogger(slog.Default()),
	}
	if cfg.HandleBudget > 0 || cmd.Flags().Changed("handle-budget") {
		opts = append(opts, sysinfo.WithHandleBudget(cfg.HandleBudget))
	}
	sys, err := sysinfo.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("open system: %w", err)
	}
	return cfg, sys, nil
}
