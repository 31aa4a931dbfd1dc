package cgroup

import (
	"os"
	"testing"

	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMounts(t *testing.T) {
	proc := &procfs.MountInfo{FSType: "proc", MountPoint: "/proc"}
	v2 := &procfs.MountInfo{FSType: "cgroup2", MountPoint: "/sys/fs/cgroup"}
	v1cpu := &procfs.MountInfo{FSType: "cgroup", MountPoint: "/sys/fs/cgroup/cpu"}
	v1mem := &procfs.MountInfo{FSType: "cgroup", MountPoint: "/sys/fs/cgroup/memory"}

	tests := []struct {
		name   string
		mounts []*procfs.MountInfo
		want   Version
		detail string
	}{
		{"none", []*procfs.MountInfo{proc}, Unsupported, "no cgroup mounts found"},
		{"unified", []*procfs.MountInfo{proc, v2}, V2, "cgroup2 on /sys/fs/cgroup"},
		{"legacy", []*procfs.MountInfo{v1cpu, v1mem}, V1, "cgroup v1 on /sys/fs/cgroup/cpu,/sys/fs/cgroup/memory"},
		{"hybrid", []*procfs.MountInfo{v1cpu, v2}, Hybrid, "cgroup2 on /sys/fs/cgroup; cgroup v1 on /sys/fs/cgroup/cpu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FromMounts(tt.mounts)
			assert.Equal(t, tt.want, m.Version)
			assert.Equal(t, tt.detail, m.Detail())
		})
	}
}

func TestVersion_String(t *testing.T) {
	assert.Equal(t, "cgroup v2", V2.String())
	assert.Equal(t, "cgroup hybrid", Hybrid.String())
	assert.Equal(t, "unsupported", Unsupported.String())
}

func TestDetect(t *testing.T) {
	if _, err := os.Stat("/proc/self/mountinfo"); err != nil {
		t.Skipf("skipping: mountinfo not available: %v", err)
	}
	ver, str, err := Detect()
	require.NoError(t, err)
	assert.NotEmpty(t, str)
	t.Logf("detected %s: %s", ver, str)
}
