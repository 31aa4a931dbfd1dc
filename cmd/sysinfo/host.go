package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/sysinfo/pkg/sysinfo"
	"github.com/ja7ad/sysinfo/pkg/system/host"
	"github.com/ja7ad/sysinfo/pkg/system/usage"
)

const _console = `sysinfo - Process and Host Inspection Tool

* GitHub: https://github.com/ja7ad/sysinfo

       Host: %s
       Kernel: %s
       CPUs: %d
       Mem: %s
       Cgroup: %s

Power report as of %s:

`

// printConsole prints the host header of the power report.
func printConsole(ctx context.Context, sys *sysinfo.System) {
	h := sys.Host()
	if err := h.Info.Refresh(ctx); err != nil {
		slog.Debug("host info", "err", err)
	}
	if err := h.Memory.Refresh(ctx); err != nil {
		slog.Debug("host memory", "err", err)
	}
	info, mem := h.Info.Stat(), h.Memory.Stat()
	fmt.Printf(_console, info.Hostname, info.KernelVersion, usage.LogicalCores(),
		mem.Total.Humanized(), info.Cgroup, time.Now().Format("2006-01-02 15:04:05"))
}

func newHostCmd(g *globalOpts) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Print CPU, memory, disk, network, sensor, user and host information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, sys, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer sys.Close()

			h := sys.Host()
			ctx := cmd.Context()
			// usage and network deltas need two readings
			if err := h.CPUs.Refresh(ctx); err != nil {
				slog.Warn("cpu refresh failed", "err", err)
			}
			if err := h.Networks.Refresh(ctx); err != nil {
				slog.Warn("network refresh failed", "err", err)
			}
			if wait > 0 {
				time.Sleep(wait)
			}
			if err := h.RefreshAll(ctx); err != nil {
				slog.Warn("host refresh incomplete", "err", err)
			}
			printHost(os.Stdout, h, wait)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "cpu-wait", 200*time.Millisecond, "delay between the two CPU and network readings")
	return cmd
}

func printHost(w io.Writer, h *host.Host, wait time.Duration) {
	info := h.Info.Stat()
	fmt.Fprintf(w, "%s  %s %s (%s %s)  %s\n", info.Hostname, info.OS, info.Arch,
		info.Platform, info.PlatformVersion, info.KernelVersion)
	fmt.Fprintf(w, "up %s since %s  load %.2f %.2f %.2f  cgroup %s",
		info.Uptime, info.BootTime.Format("2006-01-02 15:04:05"),
		info.Load.One, info.Load.Five, info.Load.Fifteen, info.Cgroup)
	if info.CgroupDetail != "" {
		fmt.Fprintf(w, " (%s)", info.CgroupDetail)
	}
	fmt.Fprintf(w, "\n\nCPU %.1f%%\n", h.CPUs.GlobalUsage())

	t := newTable(w, "CPU", "BRAND", "MHZ", "USAGE%")
	for _, c := range h.CPUs.List() {
		t.Append([]string{c.Name, c.Brand, strconv.FormatFloat(c.Frequency, 'f', 0, 64), strconv.FormatFloat(c.Usage, 'f', 1, 64)})
	}
	t.Render()

	m := h.Memory.Stat()
	fmt.Fprintln(w)
	t = newTable(w, "MEMORY", "TOTAL", "USED", "FREE", "AVAILABLE")
	t.Append([]string{"ram", m.Total.Humanized(), m.Used.Humanized(), m.Free.Humanized(), m.Available.Humanized()})
	t.Append([]string{"swap", m.SwapTotal.Humanized(), m.SwapUsed.Humanized(), m.SwapFree.Humanized(), "-"})
	t.Render()

	fmt.Fprintln(w)
	t = newTable(w, "DEVICE", "MOUNT", "FS", "MODE", "TOTAL", "USED", "AVAILABLE")
	for _, d := range h.Disks.List() {
		mode := "rw"
		if d.ReadOnly {
			mode = "ro"
		}
		t.Append([]string{d.Device, d.MountPoint, d.FileSystem, mode, d.Total.Humanized(), d.Used.Humanized(), d.Available.Humanized()})
	}
	t.Render()

	fmt.Fprintln(w)
	t = newTable(w, "INTERFACE", "MAC", "MTU", "ADDRS", "RX/"+wait.String(), "TX/"+wait.String(), "RX TOTAL", "TX TOTAL", "ERRS")
	for _, n := range h.Networks.List() {
		t.Append([]string{
			n.Name, n.MAC, strconv.Itoa(n.MTU), strings.Join(n.Addrs, ","),
			n.Received.Humanized(), n.Transmitted.Humanized(),
			n.TotalReceived.Humanized(), n.TotalTransmitted.Humanized(),
			strconv.FormatUint(n.ErrorsIn+n.ErrorsOut, 10),
		})
	}
	t.Render()

	if cs := h.Components.List(); len(cs) > 0 {
		fmt.Fprintln(w)
		t = newTable(w, "SENSOR", "TEMP °C", "MAX °C", "CRITICAL °C")
		for _, c := range cs {
			t.Append([]string{c.Label, fmtTemp(c.Temperature), fmtTemp(c.Max), fmtTemp(c.Critical)})
		}
		t.Render()
	}

	if us := h.Users.List(); len(us) > 0 {
		fmt.Fprintln(w)
		t = newTable(w, "USER", "TTY", "FROM", "SINCE")
		for _, u := range us {
			t.Append([]string{u.User, u.Terminal, u.Host, u.Started.Format("2006-01-02 15:04")})
		}
		t.Render()
	}
}

func fmtTemp(v float64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
