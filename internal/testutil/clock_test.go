package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockClock_StartsAtGenesis(t *testing.T) {
	clock := NewBlockClock(time.Time{})
	b := clock.Current()
	assert.Equal(t, int64(0), b.Number)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), b.Timestamp)
}

func TestBlockClock_NextIncrementsMonotonically(t *testing.T) {
	genesis := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := NewBlockClock(genesis)

	first := clock.Next()
	assert.Equal(t, int64(1), first.Number)
	assert.Equal(t, genesis.Add(BlockTime), first.Timestamp)
	assert.Len(t, first.Hash, 66)

	second := clock.Next()
	assert.Equal(t, int64(2), second.Number)
	assert.True(t, second.Timestamp.After(first.Timestamp))
	assert.NotEqual(t, first.Hash, second.Hash)
	assert.Equal(t, second, clock.Current())
}

func TestBlockClock_Reset(t *testing.T) {
	clock := NewBlockClock(time.Time{})
	first := clock.Next()
	clock.Next()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current().Number)
	assert.Equal(t, first, clock.Next(), "same genesis replays the same blocks")
}

func TestBlockClock_ThreadSafe(t *testing.T) {
	clock := NewBlockClock(time.Time{})
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	seen := make(chan int64, numGoroutines*callsPerGoroutine)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				seen <- clock.Next().Number
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for n := range seen {
		require.False(t, unique[n], "block %d handed out twice", n)
		unique[n] = true
	}
	assert.Len(t, unique, numGoroutines*callsPerGoroutine)
}
