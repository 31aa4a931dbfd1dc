package process

import (
	"io"
	"time"

	"github.com/ja7ad/sysinfo/pkg/system/usage"
	"github.com/ja7ad/sysinfo/pkg/types"
)

// Handle is an open, reusable reader on a process's raw stat data. Records
// cache one to avoid reopening the file on every refresh.
type Handle interface {
	io.ReaderAt
	io.Closer
}

// Source is an OS backend producing raw process data.
//
// Every method may be called concurrently for distinct PIDs.
type Source interface {
	// Enumerate lists the currently visible process identifiers. The list
	// is not atomic with respect to later reads.
	Enumerate() ([]PID, error)

	// ReadIdentity is a cheap read of the identity marker only. h may be nil.
	ReadIdentity(pid PID, h Handle) (Identity, error)

	// ReadSnapshot reads the fields in want. h may be nil, in which case the
	// source opens, reads and closes the raw data itself.
	ReadSnapshot(pid PID, h Handle, want Fields) (*Snapshot, error)

	// ProbeAlive is a lightweight existence check.
	ProbeAlive(pid PID) bool

	// Open returns a Handle suitable for caching on the record.
	Open(pid PID) (Handle, error)
}

// Memory counters in bytes.
type Memory struct {
	Resident types.Bytes
	Virtual  types.Bytes
}

// IO counters: cumulative bytes read from and written to storage.
type IO struct {
	ReadBytes    types.Bytes
	WrittenBytes types.Bytes
}

// User identifiers of a process.
type User struct {
	UserID           uint32
	EffectiveUserID  uint32
	GroupID          uint32
	EffectiveGroupID uint32
	Name             string
}

// Snapshot is one raw reading of a process. Only fields listed in Read are
// meaningful; the rest must not overwrite previously stored values.
type Snapshot struct {
	PID       PID
	Parent    PID // 0 when unknown
	Identity  Identity
	Name      string
	Status    Status
	StartTime time.Time

	Read Fields

	Ticks   usage.Ticks
	Memory  Memory
	IO      IO
	Cmd     []string
	Environ []string
	Cwd     string
	Root    string
	Exe     string
	User    User
	Tasks   []PID
}
