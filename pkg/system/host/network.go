package host

import (
	"context"
	"slices"
	"sync"

	"github.com/shirou/gopsutil/v4/net"

	"github.com/ja7ad/sysinfo/pkg/types"
)

// Network is one interface. Received and Transmitted are the byte counts
// since the previous refresh, the Total fields are cumulative.
type Network struct {
	Name             string
	MAC              string
	Addrs            []string
	MTU              int
	Received         types.Bytes
	Transmitted      types.Bytes
	TotalReceived    types.Bytes
	TotalTransmitted types.Bytes
	PacketsReceived  uint64 // since the previous refresh
	PacketsSent      uint64 // since the previous refresh
	ErrorsIn         uint64 // cumulative
	ErrorsOut        uint64 // cumulative
}

type Networks struct {
	mu   sync.RWMutex
	nets map[string]*Network
	pkts map[string][2]uint64

	counters   func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error)
	interfaces func(ctx context.Context) (net.InterfaceStatList, error)
}

func NewNetworks() *Networks {
	return &Networks{
		nets:       make(map[string]*Network),
		pkts:       make(map[string][2]uint64),
		counters:   net.IOCountersWithContext,
		interfaces: net.InterfacesWithContext,
	}
}

// Refresh reads the counters of every interface. Interfaces that
// disappeared are dropped; new ones start with zero deltas.
func (n *Networks) Refresh(ctx context.Context) error {
	counters, err := n.counters(ctx, true)
	if err != nil {
		return err
	}
	// addresses are best effort
	ifaces, _ := n.interfaces(ctx)
	byName := make(map[string]net.InterfaceStat, len(ifaces))
	for _, i := range ifaces {
		byName[i.Name] = i
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	nets := make(map[string]*Network, len(counters))
	pkts := make(map[string][2]uint64, len(counters))
	for _, c := range counters {
		cur := &Network{
			Name:             c.Name,
			TotalReceived:    types.ToBytes(c.BytesRecv),
			TotalTransmitted: types.ToBytes(c.BytesSent),
			ErrorsIn:         c.Errin,
			ErrorsOut:        c.Errout,
		}
		if prev, ok := n.nets[c.Name]; ok {
			cur.Received = types.Delta(cur.TotalReceived, prev.TotalReceived)
			cur.Transmitted = types.Delta(cur.TotalTransmitted, prev.TotalTransmitted)
			p := n.pkts[c.Name]
			cur.PacketsReceived = delta(c.PacketsRecv, p[0])
			cur.PacketsSent = delta(c.PacketsSent, p[1])
		}
		if i, ok := byName[c.Name]; ok {
			cur.MAC = i.HardwareAddr
			cur.MTU = i.MTU
			for _, a := range i.Addrs {
				cur.Addrs = append(cur.Addrs, a.Addr)
			}
		}
		nets[c.Name] = cur
		pkts[c.Name] = [2]uint64{c.PacketsRecv, c.PacketsSent}
	}
	n.nets = nets
	n.pkts = pkts
	return nil
}

// List returns the interfaces sorted by name.
func (n *Networks) List() []Network {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Network, 0, len(n.nets))
	for _, nw := range n.nets {
		c := *nw
		c.Addrs = slices.Clone(nw.Addrs)
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Network) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

func delta(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	return 0
}
