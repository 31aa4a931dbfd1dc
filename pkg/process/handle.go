package process

import (
	"sync"

	"github.com/ja7ad/sysinfo/pkg/system/governor"
)

// cachedHandle ties a source Handle to a governor lease. Close always
// returns the lease, even when closing the handle fails.
type cachedHandle struct {
	Handle
	lease *governor.Lease
	once  sync.Once
}

func (h *cachedHandle) Close() (err error) {
	h.once.Do(func() {
		defer h.lease.Release()
		err = h.Handle.Close()
	})
	return err
}

// reader returns h as a Handle, or a nil interface for a nil h so sources
// can test h == nil.
func (h *cachedHandle) reader() Handle {
	if h == nil {
		return nil
	}
	return h
}

// openHandle opens a cached handle for pid when the governor has budget
// left. A nil result means the caller takes the uncached path.
func openHandle(src Source, gov *governor.Governor, pid PID) *cachedHandle {
	lease, ok := gov.Acquire()
	if !ok {
		return nil
	}
	h, err := src.Open(pid)
	if err != nil {
		lease.Release()
		return nil
	}
	return &cachedHandle{Handle: h, lease: lease}
}
