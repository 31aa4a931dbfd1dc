package usage

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	c := New(0, 0)
	assert.Greater(t, c.Cores(), 0)
	assert.InDelta(t, 100.0, c.ElapsedTicks(time.Second), 1e-9)
}

func TestProcess_FirstSampleIsZero(t *testing.T) {
	c := New(100, 4)
	cur := Sample{Ticks: Ticks{User: 5000, System: 3000}, At: time.Now()}
	assert.Equal(t, 0.0, c.Process(nil, cur))
}

func TestProcess(t *testing.T) {
	c := New(100, 4)
	t0 := time.Unix(1_700_000_000, 0)
	prev := &Sample{Ticks: Ticks{User: 100, System: 50}, At: t0}

	t.Run("half_a_core", func(t *testing.T) {
		// 1s elapsed = 100 ticks; 50 ticks used
		cur := Sample{Ticks: Ticks{User: 130, System: 70}, At: t0.Add(time.Second)}
		require.InDelta(t, 50.0, c.Process(prev, cur), 1e-9)
	})
	t.Run("two_cores", func(t *testing.T) {
		cur := Sample{Ticks: Ticks{User: 300, System: 50}, At: t0.Add(time.Second)}
		require.InDelta(t, 200.0, c.Process(prev, cur), 1e-9)
	})
	t.Run("idle_is_computed_zero", func(t *testing.T) {
		cur := Sample{Ticks: prev.Ticks, At: t0.Add(time.Second)}
		assert.Equal(t, 0.0, c.Process(prev, cur))
	})
	t.Run("clamped_to_cores", func(t *testing.T) {
		cur := Sample{Ticks: Ticks{User: 1_000_000, System: 50}, At: t0.Add(time.Second)}
		assert.Equal(t, c.Max(), c.Process(prev, cur))
	})
	t.Run("counter_went_backwards", func(t *testing.T) {
		cur := Sample{Ticks: Ticks{User: 1, System: 1}, At: t0.Add(time.Second)}
		assert.Equal(t, 0.0, c.Process(prev, cur))
	})
	t.Run("no_elapsed_time", func(t *testing.T) {
		cur := Sample{Ticks: Ticks{User: 200, System: 50}, At: t0}
		assert.Equal(t, 0.0, c.Process(prev, cur))
	})
	t.Run("clock_went_backwards", func(t *testing.T) {
		cur := Sample{Ticks: Ticks{User: 200, System: 50}, At: t0.Add(-time.Second)}
		assert.Equal(t, 0.0, c.Process(prev, cur))
	})
}

func TestProcess_AlwaysWithinBounds(t *testing.T) {
	c := New(250, 2)
	t0 := time.Unix(0, 0)
	prev := &Sample{Ticks: Ticks{User: 1000, System: 1000}, At: t0}
	for _, used := range []uint64{0, 1, 10, 250, 500, 501, 10_000, math.MaxUint32} {
		for _, d := range []time.Duration{time.Millisecond, time.Second, time.Minute} {
			cur := Sample{Ticks: Ticks{User: 1000 + used, System: 1000}, At: t0.Add(d)}
			v := c.Process(prev, cur)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 200.0)
		}
	}
}

func TestGlobal(t *testing.T) {
	t.Run("quarter_busy", func(t *testing.T) {
		prev := Times{Busy: 100, Idle: 300}
		cur := Times{Busy: 125, Idle: 375}
		require.InDelta(t, 25.0, Global(prev, cur), 1e-9)
	})
	t.Run("no_time_passed", func(t *testing.T) {
		p := Times{Busy: 10, Idle: 10}
		assert.Equal(t, 0.0, Global(p, p))
	})
	t.Run("reset_counters", func(t *testing.T) {
		assert.Equal(t, 0.0, Global(Times{Busy: 10, Idle: 10}, Times{Busy: 1, Idle: 20}))
	})
}
