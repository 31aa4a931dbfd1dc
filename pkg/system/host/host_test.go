package host

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	gohost "github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/sysinfo/pkg/system/cgroup"
	"github.com/ja7ad/sysinfo/pkg/types"
)

func TestCPUs_Refresh(t *testing.T) {
	ctx := context.Background()
	var (
		total = []cpu.TimesStat{{CPU: "cpu-total", User: 10, System: 10, Idle: 80}}
		per   = []cpu.TimesStat{
			{CPU: "cpu0", User: 5, System: 5, Idle: 40},
			{CPU: "cpu1", User: 5, System: 5, Idle: 40},
		}
	)
	c := NewCPUs()
	c.times = func(_ context.Context, percpu bool) ([]cpu.TimesStat, error) {
		if percpu {
			return per, nil
		}
		return total, nil
	}
	c.info = func(context.Context) ([]cpu.InfoStat, error) {
		return []cpu.InfoStat{
			{VendorID: "GenuineIntel", ModelName: "Xeon", Mhz: 2400},
			{VendorID: "GenuineIntel", ModelName: "Xeon", Mhz: 2400},
		}, nil
	}

	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, 0.0, c.GlobalUsage(), "first reading has no baseline")
	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "cpu0", list[0].Name)
	assert.Equal(t, "Xeon", list[0].Brand)
	assert.Equal(t, 2400.0, list[0].Frequency)
	assert.Equal(t, 0.0, list[0].Usage)

	// +30 busy / +70 idle overall; cpu0 fully busy, cpu1 idle
	total = []cpu.TimesStat{{CPU: "cpu-total", User: 30, System: 20, Idle: 150}}
	per = []cpu.TimesStat{
		{CPU: "cpu0", User: 15, System: 15, Idle: 40},
		{CPU: "cpu1", User: 5, System: 5, Idle: 60},
	}
	require.NoError(t, c.Refresh(ctx))
	assert.InDelta(t, 30.0, c.GlobalUsage(), 1e-9)
	list = c.List()
	assert.InDelta(t, 100.0, list[0].Usage, 1e-9)
	assert.InDelta(t, 0.0, list[1].Usage, 1e-9)
}

func TestMemory_Refresh(t *testing.T) {
	m := NewMemory()
	m.virtual = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 8 << 30, Used: 2 << 30, Free: 4 << 30, Available: 5 << 30}, nil
	}
	m.swap = func(context.Context) (*mem.SwapMemoryStat, error) {
		return nil, errors.New("no swap info")
	}

	err := m.Refresh(context.Background())
	require.Error(t, err)
	st := m.Stat()
	assert.Equal(t, types.Bytes(8<<30), st.Total, "ram is updated even when swap fails")
	assert.Equal(t, types.Bytes(5<<30), st.Available)
	assert.Equal(t, types.Bytes(0), st.SwapTotal)
}

func TestDisks_Refresh(t *testing.T) {
	d := NewDisks()
	d.partitions = func(context.Context, bool) ([]disk.PartitionStat, error) {
		return []disk.PartitionStat{
			{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4", Opts: []string{"rw"}},
			{Device: "/dev/sr0", Mountpoint: "/media/cd", Fstype: "iso9660", Opts: []string{"ro"}},
		}, nil
	}
	d.usage = func(_ context.Context, path string) (*disk.UsageStat, error) {
		if path == "/" {
			return &disk.UsageStat{Total: 100, Used: 40, Free: 60}, nil
		}
		return nil, errors.New("not ready")
	}

	err := d.Refresh(context.Background())
	require.Error(t, err)
	list := d.List()
	require.Len(t, list, 2)
	assert.Equal(t, types.Bytes(60), list[0].Available)
	assert.False(t, list[0].ReadOnly)
	assert.True(t, list[1].ReadOnly)
	assert.Equal(t, types.Bytes(0), list[1].Total)
}

func TestNetworks_Refresh(t *testing.T) {
	counters := []net.IOCountersStat{
		{Name: "eth0", BytesRecv: 1000, BytesSent: 500, PacketsRecv: 10, PacketsSent: 5},
		{Name: "lo", BytesRecv: 50, BytesSent: 50},
	}
	n := NewNetworks()
	n.counters = func(context.Context, bool) ([]net.IOCountersStat, error) { return counters, nil }
	n.interfaces = func(context.Context) (net.InterfaceStatList, error) {
		return net.InterfaceStatList{{
			Name:         "eth0",
			MTU:          1500,
			HardwareAddr: "02:42:ac:11:00:02",
			Addrs:        net.InterfaceAddrList{{Addr: "172.17.0.2/16"}},
		}}, nil
	}
	ctx := context.Background()

	require.NoError(t, n.Refresh(ctx))
	list := n.List()
	require.Len(t, list, 2)
	assert.Equal(t, "eth0", list[0].Name)
	assert.Equal(t, types.Bytes(0), list[0].Received)
	assert.Equal(t, []string{"172.17.0.2/16"}, list[0].Addrs)
	assert.Equal(t, 1500, list[0].MTU)

	counters = []net.IOCountersStat{
		{Name: "eth0", BytesRecv: 1800, BytesSent: 700, PacketsRecv: 18, PacketsSent: 7},
	}
	require.NoError(t, n.Refresh(ctx))
	list = n.List()
	require.Len(t, list, 1, "vanished interfaces are dropped")
	assert.Equal(t, types.Bytes(800), list[0].Received)
	assert.Equal(t, types.Bytes(200), list[0].Transmitted)
	assert.Equal(t, types.Bytes(1800), list[0].TotalReceived)
	assert.Equal(t, uint64(8), list[0].PacketsReceived)
	assert.Equal(t, uint64(2), list[0].PacketsSent)
}

func TestComponents_Refresh(t *testing.T) {
	temp := 50.0
	c := NewComponents()
	c.temperatures = func(context.Context) ([]sensors.TemperatureStat, error) {
		return []sensors.TemperatureStat{{SensorKey: "coretemp_core_0", Temperature: temp, Critical: 100}}, nil
	}
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	temp = 40
	require.NoError(t, c.Refresh(ctx))
	list := c.List()
	require.Len(t, list, 1)
	assert.Equal(t, 40.0, list[0].Temperature)
	assert.Equal(t, 50.0, list[0].Max)
	assert.Equal(t, 100.0, list[0].Critical)
}

func TestHost_RefreshAllAggregatesErrors(t *testing.T) {
	h := New(nil)
	stubHost(h)
	h.Memory.virtual = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("meminfo unreadable")
	}
	h.Users.users = func(context.Context) ([]gohost.UserStat, error) {
		return nil, errors.New("utmp unreadable")
	}

	err := h.RefreshAll(context.Background())
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "host: memory")
	assert.Contains(t, err.Error(), "host: users")

	// the other categories were still refreshed
	info := h.Info.Stat()
	assert.Equal(t, "box", info.Hostname)
	assert.Equal(t, cgroup.V2, info.Cgroup)
	assert.Equal(t, 0.5, info.Load.One)
}

// stubHost replaces every gopsutil call with a canned answer.
func stubHost(h *Host) {
	h.CPUs.times = func(context.Context, bool) ([]cpu.TimesStat, error) {
		return []cpu.TimesStat{{CPU: "cpu0", Idle: 1}}, nil
	}
	h.CPUs.info = func(context.Context) ([]cpu.InfoStat, error) { return nil, nil }
	h.Memory.virtual = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 1}, nil
	}
	h.Memory.swap = func(context.Context) (*mem.SwapMemoryStat, error) { return &mem.SwapMemoryStat{}, nil }
	h.Disks.partitions = func(context.Context, bool) ([]disk.PartitionStat, error) { return nil, nil }
	h.Networks.counters = func(context.Context, bool) ([]net.IOCountersStat, error) { return nil, nil }
	h.Networks.interfaces = func(context.Context) (net.InterfaceStatList, error) { return nil, nil }
	h.Components.temperatures = func(context.Context) ([]sensors.TemperatureStat, error) { return nil, nil }
	h.Users.users = func(context.Context) ([]gohost.UserStat, error) { return nil, nil }
	h.Info.info = func(context.Context) (*gohost.InfoStat, error) {
		return &gohost.InfoStat{Hostname: "box", OS: "linux", Uptime: 60, BootTime: 1700000000}, nil
	}
	h.Info.avg = func(context.Context) (*load.AvgStat, error) {
		return &load.AvgStat{Load1: 0.5, Load5: 0.4, Load15: 0.3}, nil
	}
	h.Info.detect = func() (cgroup.Version, string, error) { return cgroup.V2, "cgroup2 on /sys/fs/cgroup", nil }
}
