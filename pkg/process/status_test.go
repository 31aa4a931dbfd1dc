package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFromCode(t *testing.T) {
	tests := []struct {
		code byte
		kind StatusKind
		name string
	}{
		{'R', StatusRun, "Runnable"},
		{'S', StatusSleep, "Sleeping"},
		{'D', StatusDiskSleep, "UninterruptibleDiskSleep"},
		{'Z', StatusZombie, "Zombie"},
		{'T', StatusStop, "Stopped"},
		{'t', StatusTracing, "Tracing"},
		{'X', StatusDead, "Dead"},
		{'x', StatusDead, "Dead"},
		{'I', StatusIdle, "Idle"},
		{'P', StatusParked, "Parked"},
		{'W', StatusWaking, "Waking"},
		{'K', StatusWakekill, "Wakekill"},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			s := StatusFromCode(tt.code)
			assert.Equal(t, tt.kind, s.Kind)
			assert.Equal(t, tt.code, s.Code)
			assert.Equal(t, tt.name, s.String())
		})
	}
}

func TestStatusFromCode_Unknown(t *testing.T) {
	s := StatusFromCode('Q')
	assert.Equal(t, StatusUnknown, s.Kind)
	assert.Equal(t, "Unknown(81)", s.String())
}
