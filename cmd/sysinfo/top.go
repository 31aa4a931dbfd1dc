package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/sysinfo/pkg/config"
	"github.com/ja7ad/sysinfo/pkg/consumption"
	"github.com/ja7ad/sysinfo/pkg/process"
	"github.com/ja7ad/sysinfo/pkg/sysinfo"
	"github.com/ja7ad/sysinfo/pkg/system/util"
)

type topOpts struct {
	samples  int
	interval time.Duration
	limit    int
	sort     string
	power    bool
	warmup   int
	pretty   bool

	model config.Power

	csvPath  string
	jsonPath string
	htmlPath string
}

func newTopCmd(g *globalOpts) *cobra.Command {
	o := topOpts{model: config.Default().Power}
	cmd := &cobra.Command{
		Use:   "top [PID|PID..PID]...",
		Short: "Refresh the process table periodically",
		Long: `Refresh the process table every --interval and print the busiest
processes. With PIDs only those processes are refreshed.

With --power the given PIDs are treated as one group and its power draw
(CPU, disk I/O, RAM proxies) is estimated every tick; per-tick rows can be
written to CSV, JSON and HTML files.

Examples:
  sysinfo top -n 20 --sort mem
  sysinfo top --power -s 20 -i 1s $(pgrep -d ' ' nginx)
  sysinfo top --power --csv out.csv --json out.json 12345 30000..30032`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTop(cmd, g, &o, args)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&o.samples, "samples", "s", 0, "number of refreshes (0 = run until Ctrl-C)")
	f.DurationVarP(&o.interval, "interval", "i", time.Second, "refresh interval (e.g. 1s, 500ms)")
	f.IntVarP(&o.limit, "limit", "n", 15, "rows per refresh (0 = all)")
	f.StringVar(&o.sort, "sort", "cpu", "sort key: pid, cpu, mem, name")
	f.BoolVar(&o.power, "power", false, "estimate the power draw of the given PIDs")
	f.BoolVar(&o.pretty, "pretty", true, "format power output as a table instead of CSV-like lines")
	f.IntVar(&o.warmup, "warmup", 1, "number of initial power samples to skip from display and averages")

	f.Float64Var(&o.model.EMA, "ema", o.model.EMA, "EMA alpha for VM utilization smoothing [0..1]")
	f.Float64Var(&o.model.PIdle, "p-idle", o.model.PIdle, "idle power in Watts")
	f.Float64Var(&o.model.PMax, "p-max", o.model.PMax, "max power in Watts at 100% utilization")
	f.Float64Var(&o.model.Gamma, "gamma", o.model.Gamma, "CPU nonlinearity exponent")
	f.Float64Var(&o.model.ER, "er", o.model.ER, "disk read energy per byte (J/B)")
	f.Float64Var(&o.model.EW, "ew", o.model.EW, "disk write energy per byte (J/B)")
	f.Float64Var(&o.model.EMemRSS, "e-mem-rss", o.model.EMemRSS, "RAM RSS churn energy per byte (J/B)")
	f.Float64Var(&o.model.Alpha, "alpha", o.model.Alpha, "fraction of idle to charge proportionally [0..1]")

	f.StringVar(&o.csvPath, "csv", "", "write per-tick power rows to CSV file")
	f.StringVar(&o.jsonPath, "json", "", "write per-tick power rows to JSON file")
	f.StringVar(&o.htmlPath, "html", "", "write per-tick power rows and summary to HTML file")
	return cmd
}

// merge overlays cfg with the flags set on the command line.
func (o *topOpts) merge(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("samples") {
		o.samples = cfg.Samples
	}
	if !flags.Changed("interval") {
		o.interval = cfg.Interval
	}
	model := cfg.Power
	for name, dst := range map[string]*float64{
		"ema":       &model.EMA,
		"p-idle":    &model.PIdle,
		"p-max":     &model.PMax,
		"gamma":     &model.Gamma,
		"er":        &model.ER,
		"ew":        &model.EW,
		"e-mem-rss": &model.EMemRSS,
		"alpha":     &model.Alpha,
	} {
		if flags.Changed(name) {
			v, _ := flags.GetFloat64(name)
			*dst = v
		}
	}
	o.model = model
}

func (o *topOpts) validate(pids []process.PID) error {
	switch {
	case o.interval <= 0:
		return config.ErrBadInterval
	case o.samples < 0:
		return config.ErrBadSamples
	case o.model.EMA < 0 || o.model.EMA > 1:
		return fmt.Errorf("ema must be in [0,1]")
	case o.model.Alpha < 0 || o.model.Alpha > 1:
		return fmt.Errorf("alpha must be in [0,1]")
	case o.power && len(pids) == 0:
		return fmt.Errorf("--power needs at least one PID")
	}
	return nil
}

func runTop(cmd *cobra.Command, g *globalOpts, o *topOpts, args []string) error {
	ids, err := util.ParsePIDs(args)
	if err != nil {
		return err
	}
	pids := toPIDs(ids)

	cfg, sys, err := g.open(cmd)
	if err != nil {
		return err
	}
	defer sys.Close()

	o.merge(cmd, cfg)
	if err := o.validate(pids); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if o.power {
		printConsole(ctx, sys)
		return runPower(ctx, sys, o, pids)
	}

	kind, _ := cfg.Refresh.Kind()
	kind = kind.WithCPU().WithMemory().WithUser(process.UpdateOnlyIfNotSet)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for n := 0; o.samples == 0 || n <= o.samples; {
		var err error
		if len(pids) > 0 {
			_, err = sys.RefreshProcessesSome(pids, kind)
		} else {
			_, err = sys.RefreshProcesses(kind)
		}
		if err != nil {
			slog.Warn("refresh failed", "err", err)
		} else if n > 0 {
			// the first refresh only sets the CPU baselines
			ps := selectProcesses(sys, pids, "")
			if err := sortProcesses(ps, o.sort); err != nil {
				return err
			}
			if o.limit > 0 && len(ps) > o.limit {
				ps = ps[:o.limit]
			}
			fmt.Printf("\n%s  %d processes, cpu %.1f%%\n",
				time.Now().Format("2006-01-02 15:04:05"), sys.Table().Len(), sys.GlobalCPUUsage())
			renderProcesses(os.Stdout, ps, false)
		}
		n++

		select {
		case <-ctx.Done():
			slog.Info("interrupted")
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func runPower(ctx context.Context, sys *sysinfo.System, o *topOpts, pids []process.PID) error {
	acc := consumption.New(&consumption.Config{
		PIdle:   o.model.PIdle,
		PMax:    o.model.PMax,
		Gamma:   o.model.Gamma,
		ER:      o.model.ER,
		EW:      o.model.EW,
		EMemRSS: o.model.EMemRSS,
		Alpha:   o.model.Alpha,
	})
	sampler := consumption.NewSampler(sys, o.model.EMA)

	rep, err := openReport(o.csvPath, o.jsonPath, o.htmlPath)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}

	if o.pretty {
		fmt.Printf("%-19s  %6s  %6s  %9s  %10s  %9s  %11s  %10s\n",
			"TIME", "U_vm", "U_proc", "P_cpu (W)", "P_disk (W)", "P_ram (W)", "P_total (W)", "E_cum (J)")
	} else {
		fmt.Println("# time, U_vm, U_proc, P_cpu(W), P_disk(W), P_ram(W), P_total(W), E_cum(J)")
	}

	// the first Sample only records baselines
	last := time.Now()
	if _, err := sampler.Sample(pids, o.interval); err != nil && !errors.Is(err, consumption.ErrAllExited) {
		slog.Warn("sample error", "err", err)
	}
	names := pidNames(sys, pids)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	sampleN := 0
loop:
	for {
		select {
		case <-ctx.Done():
			slog.Info("interrupted")
			break loop

		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now

			s, err := sampler.Sample(pids, dt)
			if err != nil {
				if errors.Is(err, consumption.ErrAllExited) {
					fmt.Println("# All PIDs exited")
					break loop
				}
				slog.Warn("sample error", "err", err)
				continue
			}

			sampleN++
			if o.warmup > 0 && sampleN <= o.warmup {
				continue
			}

			res := acc.Apply(s)

			if o.pretty {
				fmt.Printf("%-19s  %6.4f  %6.4f  %9.3f  %10.3f  %9.3f  %11.3f  %10.3f\n",
					now.Format("2006-01-02 15:04:05"), s.SystemUsage, s.ProcessUsage,
					res.PCPU, res.PDisk, res.PRAM, res.PTotal, acc.EnergyCumJ())
			} else {
				fmt.Printf("%s, %.4f, %.4f, %.3f, %.3f, %.3f, %.3f, %.3f\n",
					now.Format(time.RFC3339), s.SystemUsage, s.ProcessUsage,
					res.PCPU, res.PDisk, res.PRAM, res.PTotal, acc.EnergyCumJ())
			}

			if err := rep.write(row{
				At:          now,
				UVm:         s.SystemUsage,
				UProc:       s.ProcessUsage,
				PCPU:        res.PCPU,
				PDisk:       res.PDisk,
				PRAM:        res.PRAM,
				PIdleShare:  res.PIdleShare,
				PTotal:      res.PTotal,
				EnergyCumJ:  acc.EnergyCumJ(),
				ReadBytes:   s.ReadBytes,
				WriteBytes:  s.WriteBytes,
				RSSChurnB:   s.RSSChurnBytes,
				IntervalSec: dt.Seconds(),
			}); err != nil {
				slog.Error("write report row", "err", err)
			}

			// stop condition counts only post-warmup samples
			if o.samples > 0 && sampleN-o.warmup >= o.samples {
				break loop
			}
		}
	}

	avg := acc.Averages()
	if err := rep.close(avg, acc.EnergyCumJ(), names); err != nil {
		slog.Error("close report", "err", err)
	}

	fmt.Println()
	fmt.Printf("consumption avg (over %d samples of ~%s):\n", max(sampleN-o.warmup, 0), o.interval)
	fmt.Printf("- watt (cpu):    %.3f W\n", avg.PCPU)
	fmt.Printf("- watt (disk):   %.3f W\n", avg.PDisk)
	fmt.Printf("- watt (ram):    %.3f W\n", avg.PRAM)
	fmt.Printf("- watt (total):  %.3f W\n", avg.PTotal)
	fmt.Println()
	return nil
}

func pidNames(sys *sysinfo.System, pids []process.PID) []pidInfo {
	out := make([]pidInfo, 0, len(pids))
	for _, pid := range pids {
		if p, ok := sys.Process(pid); ok && p.Exists() {
			out = append(out, pidInfo{PID: int(pid), Name: p.Name()})
		}
	}
	return out
}
