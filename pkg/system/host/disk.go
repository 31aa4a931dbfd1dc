package host

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/ja7ad/sysinfo/pkg/types"
)

// Disk is one mounted partition.
type Disk struct {
	Device     string
	MountPoint string
	FileSystem string
	ReadOnly   bool
	Total      types.Bytes
	Used       types.Bytes
	Available  types.Bytes
}

type Disks struct {
	mu    sync.RWMutex
	disks []Disk

	partitions func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	usage      func(ctx context.Context, path string) (*disk.UsageStat, error)
}

func NewDisks() *Disks {
	return &Disks{
		partitions: disk.PartitionsWithContext,
		usage:      disk.UsageWithContext,
	}
}

// Refresh lists physical partitions and their usage. Partitions whose usage
// cannot be read are still listed, with zero sizes.
func (d *Disks) Refresh(ctx context.Context) error {
	parts, err := d.partitions(ctx, false)
	if err != nil {
		return err
	}

	var result *multierror.Error
	disks := make([]Disk, 0, len(parts))
	for _, p := range parts {
		dk := Disk{
			Device:     p.Device,
			MountPoint: p.Mountpoint,
			FileSystem: p.Fstype,
			ReadOnly:   readOnly(p.Opts),
		}
		if u, err := d.usage(ctx, p.Mountpoint); err != nil {
			result = multierror.Append(result, err)
		} else {
			dk.Total = types.ToBytes(u.Total)
			dk.Used = types.ToBytes(u.Used)
			dk.Available = types.ToBytes(u.Free)
		}
		disks = append(disks, dk)
	}

	d.mu.Lock()
	d.disks = disks
	d.mu.Unlock()
	return result.ErrorOrNil()
}

func (d *Disks) List() []Disk {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Disk, len(d.disks))
	copy(out, d.disks)
	return out
}

func readOnly(opts []string) bool {
	for _, o := range opts {
		if o == "ro" {
			return true
		}
	}
	return false
}
