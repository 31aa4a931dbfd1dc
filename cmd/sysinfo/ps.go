package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/sysinfo/pkg/process"
	"github.com/ja7ad/sysinfo/pkg/sysinfo"
	"github.com/ja7ad/sysinfo/pkg/system/util"
)

type psOpts struct {
	sort    string
	limit   int
	name    string
	wait    time.Duration
	tasks   bool
	cmdline bool
}

func newPsCmd(g *globalOpts) *cobra.Command {
	var o psOpts
	cmd := &cobra.Command{
		Use:   "ps [PID|PID..PID]...",
		Short: "List processes once",
		Long: `List every process, or only the given PIDs. CPU usage needs two
readings, so the table is refreshed twice --cpu-wait apart; --cpu-wait 0
skips the second reading and reports 0% for every process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPs(cmd, g, o, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.sort, "sort", "cpu", "sort key: pid, cpu, mem, name")
	f.IntVarP(&o.limit, "limit", "n", 0, "show at most n rows (0 = all)")
	f.StringVar(&o.name, "name", "", "only processes whose name contains this")
	f.DurationVar(&o.wait, "cpu-wait", 200*time.Millisecond, "delay between the two CPU readings")
	f.BoolVar(&o.tasks, "tasks", false, "list tasks (threads) too")
	f.BoolVar(&o.cmdline, "cmd", false, "show the command line")
	return cmd
}

func runPs(cmd *cobra.Command, g *globalOpts, o psOpts, args []string) error {
	ids, err := util.ParsePIDs(args)
	if err != nil {
		return err
	}
	cfg, sys, err := g.open(cmd)
	if err != nil {
		return err
	}
	defer sys.Close()

	kind, _ := cfg.Refresh.Kind()
	kind = kind.WithCPU().WithMemory().WithUser(process.UpdateOnlyIfNotSet)
	if o.tasks {
		kind = kind.WithTasks()
	}
	if o.cmdline {
		kind = kind.WithCmd(process.UpdateOnlyIfNotSet)
	}

	pids := toPIDs(ids)
	refresh := func() error {
		if len(pids) > 0 {
			_, err := sys.RefreshProcessesSome(pids, kind)
			return err
		}
		_, err := sys.RefreshProcesses(kind)
		return err
	}
	if err := refresh(); err != nil {
		return err
	}
	if o.wait > 0 {
		time.Sleep(o.wait)
		if err := refresh(); err != nil {
			return err
		}
	}

	ps := selectProcesses(sys, pids, o.name)
	if err := sortProcesses(ps, o.sort); err != nil {
		return err
	}
	if o.limit > 0 && len(ps) > o.limit {
		ps = ps[:o.limit]
	}
	renderProcesses(os.Stdout, ps, o.cmdline)
	fmt.Printf("\n%d processes, cpu %.1f%%\n", len(ps), sys.GlobalCPUUsage())
	return nil
}

// selectProcesses returns the live records for pids, or every live record
// when pids is empty, keeping those whose name contains name.
func selectProcesses(sys *sysinfo.System, pids []process.PID, name string) []*process.Process {
	var ps []*process.Process
	if len(pids) == 0 {
		ps = sys.ProcessesByName(name)
	} else {
		for _, pid := range pids {
			if p, ok := sys.Process(pid); ok {
				ps = append(ps, p)
			}
		}
	}
	out := ps[:0]
	for _, p := range ps {
		if p.Exists() && strings.Contains(p.Name(), name) {
			out = append(out, p)
		}
	}
	return out
}
