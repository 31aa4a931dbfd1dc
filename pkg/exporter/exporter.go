// Package exporter exposes a sysinfo.System as Prometheus metrics. Every
// scrape refreshes the process table (and optionally the host categories)
// before reporting, so the scrape interval is the refresh interval.
package exporter

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ja7ad/sysinfo/pkg/process"
	"github.com/ja7ad/sysinfo/pkg/sysinfo"
)

const namespace = "sysinfo"

// Options configures a Collector. Zero values select defaults.
type Options struct {
	// Kind selects the per-process reads of each scrape. Defaults to CPU
	// and memory.
	Kind *process.RefreshKind
	// Host enables host category metrics.
	Host bool
	// Timeout bounds the host refresh of one scrape, 5s by default.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Collector implements prometheus.Collector.
type Collector struct {
	mu      sync.Mutex
	sys     *sysinfo.System
	kind    process.RefreshKind
	host    bool
	timeout time.Duration
	logger  *slog.Logger

	processes *prometheus.Desc
	examined  *prometheus.Desc
	errors    *prometheus.Desc
	procCPU   *prometheus.Desc
	procRSS   *prometheus.Desc
	procVirt  *prometheus.Desc
	procRead  *prometheus.Desc
	procWrite *prometheus.Desc
	cpuGlobal *prometheus.Desc
	cpuCore   *prometheus.Desc
	memory    *prometheus.Desc
	swap      *prometheus.Desc
	disk      *prometheus.Desc
	netRx     *prometheus.Desc
	netTx     *prometheus.Desc
	temp      *prometheus.Desc
	load      *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func New(sys *sysinfo.System, opts *Options) *Collector {
	var o Options
	if opts != nil {
		o = *opts
	}
	kind := process.NewRefreshKind().WithCPU().WithMemory()
	if o.Kind != nil {
		kind = *o.Kind
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	procLabels := []string{"pid", "name"}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		sys:     sys,
		kind:    kind,
		host:    o.Host,
		timeout: o.Timeout,
		logger:  o.Logger,

		processes: desc("processes", "Number of tracked processes and tasks."),
		examined:  desc("refresh_examined", "Identifiers read successfully by the last refresh."),
		errors:    desc("refresh_errors", "Categories that failed in the last refresh.", "category"),
		procCPU:   desc("process_cpu_usage_percent", "CPU usage of a process over the last interval, relative to one core.", procLabels...),
		procRSS:   desc("process_resident_memory_bytes", "Resident set size of a process.", procLabels...),
		procVirt:  desc("process_virtual_memory_bytes", "Virtual memory size of a process.", procLabels...),
		procRead:  desc("process_disk_read_bytes_total", "Bytes read from storage by a process.", procLabels...),
		procWrite: desc("process_disk_written_bytes_total", "Bytes written to storage by a process.", procLabels...),
		cpuGlobal: desc("cpu_usage_percent", "Machine-wide CPU usage over the last interval."),
		cpuCore:   desc("cpu_core_usage_percent", "Usage of one logical core over the last interval.", "cpu"),
		memory:    desc("memory_bytes", "Physical memory by kind.", "kind"),
		swap:      desc("swap_bytes", "Swap by kind.", "kind"),
		disk:      desc("disk_bytes", "Partition size by kind.", "device", "mountpoint", "kind"),
		netRx:     desc("network_received_bytes_total", "Bytes received on an interface.", "interface"),
		netTx:     desc("network_transmitted_bytes_total", "Bytes transmitted on an interface.", "interface"),
		temp:      desc("temperature_celsius", "Temperature of a sensor.", "sensor"),
		load:      desc("load_average", "System load average.", "period"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.processes, c.examined, c.errors,
		c.procCPU, c.procRSS, c.procVirt, c.procRead, c.procWrite,
		c.cpuGlobal, c.cpuCore, c.memory, c.swap, c.disk,
		c.netRx, c.netTx, c.temp, c.load,
	} {
		ch <- d
	}
}

// Collect refreshes and reports. Concurrent scrapes are serialized since
// records must not be read while they are being refreshed.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	procErrs := 0.0
	n, err := c.sys.RefreshProcesses(c.kind)
	if err != nil {
		c.logger.Warn("process refresh failed", slog.Any("err", err))
		procErrs = 1
	}
	ch <- prometheus.MustNewConstMetric(c.examined, prometheus.GaugeValue, float64(n))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.GaugeValue, procErrs, "processes")
	c.collectProcesses(ch)

	if !c.host {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	hostErrs := 0.0
	if err := c.sys.Host().RefreshAll(ctx); err != nil {
		c.logger.Warn("host refresh failed", slog.Any("err", err))
		hostErrs = 1
	}
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.GaugeValue, hostErrs, "host")
	c.collectHost(ch)
}

func (c *Collector) collectProcesses(ch chan<- prometheus.Metric) {
	procs := c.sys.Processes()
	ch <- prometheus.MustNewConstMetric(c.processes, prometheus.GaugeValue, float64(len(procs)))
	if c.kind.CPU {
		ch <- prometheus.MustNewConstMetric(c.cpuGlobal, prometheus.GaugeValue, c.sys.GlobalCPUUsage())
	}
	for _, p := range procs {
		if p.ThreadKind() != process.ThreadNone || !p.Exists() {
			continue
		}
		labels := []string{strconv.Itoa(int(p.PID())), p.Name()}
		if c.kind.CPU {
			ch <- prometheus.MustNewConstMetric(c.procCPU, prometheus.GaugeValue, p.CPUUsage(), labels...)
		}
		if c.kind.Memory {
			ch <- prometheus.MustNewConstMetric(c.procRSS, prometheus.GaugeValue, float64(p.Memory()), labels...)
			ch <- prometheus.MustNewConstMetric(c.procVirt, prometheus.GaugeValue, float64(p.VirtualMemory()), labels...)
		}
		if c.kind.DiskUsage {
			du := p.DiskUsage()
			ch <- prometheus.MustNewConstMetric(c.procRead, prometheus.CounterValue, float64(du.TotalReadBytes), labels...)
			ch <- prometheus.MustNewConstMetric(c.procWrite, prometheus.CounterValue, float64(du.TotalWrittenBytes), labels...)
		}
	}
}

func (c *Collector) collectHost(ch chan<- prometheus.Metric) {
	h := c.sys.Host()

	if !c.kind.CPU {
		ch <- prometheus.MustNewConstMetric(c.cpuGlobal, prometheus.GaugeValue, h.CPUs.GlobalUsage())
	}
	for _, cpu := range h.CPUs.List() {
		ch <- prometheus.MustNewConstMetric(c.cpuCore, prometheus.GaugeValue, cpu.Usage, cpu.Name)
	}

	m := h.Memory.Stat()
	for kind, v := range map[string]float64{
		"total":     float64(m.Total),
		"used":      float64(m.Used),
		"free":      float64(m.Free),
		"available": float64(m.Available),
	} {
		ch <- prometheus.MustNewConstMetric(c.memory, prometheus.GaugeValue, v, kind)
	}
	for kind, v := range map[string]float64{
		"total": float64(m.SwapTotal),
		"used":  float64(m.SwapUsed),
		"free":  float64(m.SwapFree),
	} {
		ch <- prometheus.MustNewConstMetric(c.swap, prometheus.GaugeValue, v, kind)
	}

	seen := make(map[string]bool)
	for _, d := range h.Disks.List() {
		// bind mounts list the same device and mount point more than once
		key := d.Device + "\x00" + d.MountPoint
		if seen[key] {
			continue
		}
		seen[key] = true
		ch <- prometheus.MustNewConstMetric(c.disk, prometheus.GaugeValue, float64(d.Total), d.Device, d.MountPoint, "total")
		ch <- prometheus.MustNewConstMetric(c.disk, prometheus.GaugeValue, float64(d.Available), d.Device, d.MountPoint, "available")
	}
	for _, n := range h.Networks.List() {
		ch <- prometheus.MustNewConstMetric(c.netRx, prometheus.CounterValue, float64(n.TotalReceived), n.Name)
		ch <- prometheus.MustNewConstMetric(c.netTx, prometheus.CounterValue, float64(n.TotalTransmitted), n.Name)
	}
	clear(seen)
	for _, t := range h.Components.List() {
		if seen[t.Label] {
			continue
		}
		seen[t.Label] = true
		ch <- prometheus.MustNewConstMetric(c.temp, prometheus.GaugeValue, t.Temperature, t.Label)
	}

	l := h.Info.Stat().Load
	ch <- prometheus.MustNewConstMetric(c.load, prometheus.GaugeValue, l.One, "1m")
	ch <- prometheus.MustNewConstMetric(c.load, prometheus.GaugeValue, l.Five, "5m")
	ch <- prometheus.MustNewConstMetric(c.load, prometheus.GaugeValue, l.Fifteen, "15m")
}
