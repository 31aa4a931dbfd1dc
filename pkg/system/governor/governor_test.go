package governor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGovernor_BudgetOfTwo(t *testing.T) {
	g := New(2)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		leases []*Lease
		failed int
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, ok := g.Acquire()
			mu.Lock()
			defer mu.Unlock()
			if ok {
				leases = append(leases, l)
			} else {
				failed++
			}
		}()
	}
	wg.Wait()

	require.Len(t, leases, 2)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 0, g.Available())

	leases[0].Release()
	assert.Equal(t, 1, g.Available())

	l, ok := g.Acquire()
	require.True(t, ok)
	require.NotNil(t, l)
	assert.Equal(t, 0, g.Available())
}

func TestLease_ReleaseIsIdempotent(t *testing.T) {
	g := New(1)
	l, ok := g.Acquire()
	require.True(t, ok)

	l.Release()
	l.Release()
	assert.Equal(t, 1, g.Available())

	var nilLease *Lease
	assert.NotPanics(t, nilLease.Release)
}

func TestGovernor_ZeroAndNegativeBudget(t *testing.T) {
	for _, budget := range []int{0, -5} {
		g := New(budget)
		_, ok := g.Acquire()
		assert.False(t, ok)
		assert.Equal(t, 0, g.Available())
		assert.Equal(t, 0, g.Budget())
	}
}

func TestGovernor_ConcurrentNeverOutOfBounds(t *testing.T) {
	const budget = 16
	g := New(budget)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				l, ok := g.Acquire()
				avail := g.Available()
				assert.GreaterOrEqual(t, avail, 0)
				assert.LessOrEqual(t, avail, budget)
				if ok {
					l.Release()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, budget, g.Available())
}

func TestDefault(t *testing.T) {
	g := Default()
	require.NotNil(t, g)
	assert.Same(t, g, Default())
	assert.Greater(t, g.Budget(), 0)
	assert.LessOrEqual(t, g.Available(), g.Budget())
}
