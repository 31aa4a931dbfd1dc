package host

import (
	"context"
	"sync"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/ja7ad/sysinfo/pkg/types"
)

// MemoryStat is RAM and swap as of the last refresh.
type MemoryStat struct {
	Total     types.Bytes
	Used      types.Bytes
	Free      types.Bytes
	Available types.Bytes
	SwapTotal types.Bytes
	SwapUsed  types.Bytes
	SwapFree  types.Bytes
}

type Memory struct {
	mu   sync.RWMutex
	stat MemoryStat

	virtual func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	swap    func(ctx context.Context) (*mem.SwapMemoryStat, error)
}

func NewMemory() *Memory {
	return &Memory{
		virtual: mem.VirtualMemoryWithContext,
		swap:    mem.SwapMemoryWithContext,
	}
}

// Refresh reads RAM and swap. A swap failure keeps the previous swap values
// and is reported after RAM was updated.
func (m *Memory) Refresh(ctx context.Context) error {
	vm, err := m.virtual(ctx)
	if err != nil {
		return err
	}
	sw, swErr := m.swap(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stat.Total = types.ToBytes(vm.Total)
	m.stat.Used = types.ToBytes(vm.Used)
	m.stat.Free = types.ToBytes(vm.Free)
	m.stat.Available = types.ToBytes(vm.Available)
	if swErr != nil {
		return swErr
	}
	m.stat.SwapTotal = types.ToBytes(sw.Total)
	m.stat.SwapUsed = types.ToBytes(sw.Used)
	m.stat.SwapFree = types.ToBytes(sw.Free)
	return nil
}

func (m *Memory) Stat() MemoryStat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stat
}
