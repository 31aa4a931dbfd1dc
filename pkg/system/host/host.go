// Package host samples machine-wide metrics through gopsutil: CPUs, memory,
// disks, network interfaces, temperature sensors, logged-in users and
// general host information.
//
// Every category is refreshed on its own with Refresh(ctx). Host.RefreshAll
// refreshes all of them and reports the failures of every category that
// failed, so one unreadable category does not hide the others.
package host

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
)

// Host groups all metric categories.
type Host struct {
	CPUs       *CPUs
	Memory     *Memory
	Disks      *Disks
	Networks   *Networks
	Components *Components
	Users      *Users
	Info       *Info

	logger *slog.Logger
}

// New returns a Host with nothing read yet. A nil logger selects
// slog.Default().
func New(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		CPUs:       NewCPUs(),
		Memory:     NewMemory(),
		Disks:      NewDisks(),
		Networks:   NewNetworks(),
		Components: NewComponents(),
		Users:      NewUsers(),
		Info:       NewInfo(),
		logger:     logger,
	}
}

type refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshAll refreshes every category. The returned error, if any, is a
// *multierror.Error with one entry per failed category.
func (h *Host) RefreshAll(ctx context.Context) error {
	var result *multierror.Error
	for _, c := range []struct {
		name string
		r    refresher
	}{
		{"cpu", h.CPUs},
		{"memory", h.Memory},
		{"disks", h.Disks},
		{"networks", h.Networks},
		{"components", h.Components},
		{"users", h.Users},
		{"info", h.Info},
	} {
		if err := c.r.Refresh(ctx); err != nil {
			h.logger.Debug("host refresh failed", slog.String("category", c.name), slog.Any("err", err))
			result = multierror.Append(result, fmt.Errorf("host: %s: %w", c.name, err))
		}
	}
	return result.ErrorOrNil()
}
