package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 1000

	err := ForEach(n, cfg, func(_ int) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(n), counter)
}

func TestForEach_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	order := make([]int, 0, 100)
	err := ForEach(100, cfg, func(i int) error {
		order = append(order, i)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, order, 100)
	for i, got := range order {
		assert.Equal(t, i, got)
	}
}

func TestForEach_EveryItemOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 8, MinItems: 2}

	n := 500
	seen := make([]int64, n)
	err := ForEach(n, cfg, func(i int) error {
		atomic.AddInt64(&seen[i], 1)
		return nil
	})

	require.NoError(t, err)
	for i, count := range seen {
		assert.Equal(t, int64(1), count, "item %d", i)
	}
}

func TestForEach_Barrier(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinItems: 2}

	var running int64
	err := ForEach(64, cfg, func(_ int) error {
		atomic.AddInt64(&running, 1)
		return nil
	})

	require.NoError(t, err)
	// ForEach returned, so every item must have completed.
	assert.Equal(t, int64(64), running)
}

func TestForEach_Error(t *testing.T) {
	boom := errors.New("boom")
	cfg := Config{Enabled: true, NumWorkers: 4, MinItems: 2}

	var calls int64
	err := ForEach(32, cfg, func(i int) error {
		atomic.AddInt64(&calls, 1)
		if i == 7 {
			return boom
		}
		return nil
	})

	require.ErrorIs(t, err, boom)
	// The pool drains the remaining items even after a failure.
	assert.Equal(t, int64(32), calls)
}

func TestForEach_SequentialErrorStops(t *testing.T) {
	boom := errors.New("boom")

	var calls int
	err := ForEach(10, Config{Enabled: false}, func(i int) error {
		calls++
		if i == 3 {
			return boom
		}
		return nil
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls)
}

func TestForEach_BelowMinItems(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 8, MinItems: 100}

	order := make([]int, 0, 10)
	err := ForEach(10, cfg, func(i int) error {
		order = append(order, i)
		return nil
	})

	require.NoError(t, err)
	// Small batches run sequentially on the calling goroutine.
	require.Len(t, order, 10)
	assert.Equal(t, 0, order[0])
	assert.Equal(t, 9, order[9])
}
