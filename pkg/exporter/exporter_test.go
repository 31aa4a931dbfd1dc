package exporter

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/sysinfo/pkg/process"
	"github.com/ja7ad/sysinfo/pkg/sysinfo"
	"github.com/ja7ad/sysinfo/pkg/types"
)

type fixedSource map[process.PID]struct {
	name string
	rss  types.Bytes
}

func (s fixedSource) Enumerate() ([]process.PID, error) {
	var out []process.PID
	for pid := range s {
		out = append(out, pid)
	}
	return out, nil
}

func (s fixedSource) ReadIdentity(pid process.PID, _ process.Handle) (process.Identity, error) {
	if _, ok := s[pid]; !ok {
		return 0, process.ErrNotFound
	}
	return 1, nil
}

func (s fixedSource) ReadSnapshot(pid process.PID, _ process.Handle, want process.Fields) (*process.Snapshot, error) {
	p, ok := s[pid]
	if !ok {
		return nil, process.ErrNotFound
	}
	return &process.Snapshot{
		PID:      pid,
		Identity: 1,
		Name:     p.name,
		Memory:   process.Memory{Resident: p.rss, Virtual: 4 * p.rss},
		Read:     want,
	}, nil
}

func (s fixedSource) ProbeAlive(pid process.PID) bool {
	_, ok := s[pid]
	return ok
}

func (s fixedSource) Open(process.PID) (process.Handle, error) { return nil, errors.New("uncached") }

func newCollector(t *testing.T) *Collector {
	t.Helper()
	src := fixedSource{
		10: {name: "nginx", rss: 4096},
		20: {name: "sshd", rss: 8192},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sys, err := sysinfo.New(sysinfo.WithSource(src), sysinfo.WithWorkers(1), sysinfo.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sys.Close() })
	return New(sys, &Options{Logger: logger})
}

func TestCollector_ProcessMetrics(t *testing.T) {
	c := newCollector(t)

	expected := `
# HELP sysinfo_processes Number of tracked processes and tasks.
# TYPE sysinfo_processes gauge
sysinfo_processes 2
# HELP sysinfo_process_resident_memory_bytes Resident set size of a process.
# TYPE sysinfo_process_resident_memory_bytes gauge
sysinfo_process_resident_memory_bytes{name="nginx",pid="10"} 4096
sysinfo_process_resident_memory_bytes{name="sshd",pid="20"} 8192
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"sysinfo_processes", "sysinfo_process_resident_memory_bytes")
	require.NoError(t, err)
}

func TestCollector_Registers(t *testing.T) {
	c := newCollector(t)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["sysinfo_process_cpu_usage_percent"])
	assert.True(t, names["sysinfo_cpu_usage_percent"])
	assert.True(t, names["sysinfo_refresh_examined"])
	assert.False(t, names["sysinfo_load_average"], "host metrics are off by default")

	assert.Equal(t, 2, testutil.CollectAndCount(c, "sysinfo_process_virtual_memory_bytes"))
}
