package process

import "fmt"

// StatusKind is the scheduler state of a process.
type StatusKind uint8

const (
	StatusUnknown StatusKind = iota
	StatusIdle
	StatusRun
	StatusSleep
	StatusStop
	StatusZombie
	StatusDead
	StatusTracing
	StatusDiskSleep
	StatusParked
	StatusWaking
	StatusWakekill
)

// Status is a StatusKind plus the raw state code it was decoded from. Codes
// outside the known set decode to StatusUnknown and keep the code.
type Status struct {
	Kind StatusKind
	Code byte
}

// StatusFromCode decodes a Linux state letter as found in /proc/<pid>/stat.
func StatusFromCode(c byte) Status {
	var k StatusKind
	switch c {
	case 'I':
		k = StatusIdle
	case 'R':
		k = StatusRun
	case 'S':
		k = StatusSleep
	case 'T':
		k = StatusStop
	case 'Z':
		k = StatusZombie
	case 'X', 'x':
		k = StatusDead
	case 't':
		k = StatusTracing
	case 'D':
		k = StatusDiskSleep
	case 'P':
		k = StatusParked
	case 'W':
		k = StatusWaking
	case 'K':
		k = StatusWakekill
	default:
		k = StatusUnknown
	}
	return Status{Kind: k, Code: c}
}

var statusNames = map[StatusKind]string{
	StatusIdle:      "Idle",
	StatusRun:       "Runnable",
	StatusSleep:     "Sleeping",
	StatusStop:      "Stopped",
	StatusZombie:    "Zombie",
	StatusDead:      "Dead",
	StatusTracing:   "Tracing",
	StatusDiskSleep: "UninterruptibleDiskSleep",
	StatusParked:    "Parked",
	StatusWaking:    "Waking",
	StatusWakekill:  "Wakekill",
}

func (s Status) String() string {
	if name, ok := statusNames[s.Kind]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", s.Code)
}
