package cgroup

import (
	"fmt"
	"strings"

	"github.com/prometheus/procfs"
)

type Version int

const (
	Unsupported Version = iota // non-Linux or no cgroup mounts
	V1                         // legacy multi-hierarchy cgroup v1
	V2                         // unified cgroup v2
	Hybrid                     // both v1 and v2 present
)

func (v Version) String() string {
	switch v {
	case V1:
		return "cgroup v1"
	case V2:
		return "cgroup v2"
	case Hybrid:
		return "cgroup hybrid"
	default:
		return "unsupported"
	}
}

// Mode is a detected cgroup version with the mount points it was seen on.
type Mode struct {
	Version  Version
	V1Mounts []string
	V2Mounts []string
}

// Detail is a human-readable description of the mounts.
func (m Mode) Detail() string {
	switch m.Version {
	case Hybrid:
		return fmt.Sprintf("cgroup2 on %s; cgroup v1 on %s",
			strings.Join(m.V2Mounts, ","), strings.Join(m.V1Mounts, ","))
	case V2:
		return "cgroup2 on " + strings.Join(m.V2Mounts, ",")
	case V1:
		return "cgroup v1 on " + strings.Join(m.V1Mounts, ",")
	default:
		return "no cgroup mounts found"
	}
}

// Detect returns the detected cgroup version and a human-readable detail
// string, from the filesystem types in /proc/self/mountinfo.
func Detect() (Version, string, error) {
	mounts, err := procfs.GetMounts()
	if err != nil {
		return Unsupported, "", fmt.Errorf("cgroup: read mountinfo: %w", err)
	}
	m := FromMounts(mounts)
	return m.Version, m.Detail(), nil
}

// FromMounts classifies a parsed mount table.
func FromMounts(mounts []*procfs.MountInfo) Mode {
	var m Mode
	for _, mi := range mounts {
		switch mi.FSType {
		case "cgroup2":
			m.V2Mounts = append(m.V2Mounts, mi.MountPoint)
		case "cgroup":
			m.V1Mounts = append(m.V1Mounts, mi.MountPoint)
		}
	}
	switch {
	case len(m.V1Mounts) > 0 && len(m.V2Mounts) > 0:
		m.Version = Hybrid
	case len(m.V2Mounts) > 0:
		m.Version = V2
	case len(m.V1Mounts) > 0:
		m.Version = V1
	}
	return m
}
