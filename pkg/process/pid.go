package process

import (
	"fmt"
	"strconv"
)

// PID is an operating-system process (or task) identifier. It is unique at
// a point in time only; the OS reuses identifiers after a process exits.
type PID int32

func (p PID) String() string { return strconv.Itoa(int(p)) }

// Identity is the raw start time reported by the kernel, in scheduler ticks
// since boot. It is only compared for equality: two readings of the same PID
// with different identities are two different processes.
type Identity uint64

// ThreadKind tells process records apart from task (thread) records.
type ThreadKind uint8

const (
	// ThreadNone marks a regular process.
	ThreadNone ThreadKind = iota
	// ThreadUserland marks a task of another process.
	ThreadUserland
)

func (k ThreadKind) String() string {
	switch k {
	case ThreadNone:
		return "process"
	case ThreadUserland:
		return "task"
	default:
		return fmt.Sprintf("ThreadKind(%d)", uint8(k))
	}
}
