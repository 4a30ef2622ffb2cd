package testutil

import (
	"fmt"
	"sync"
	"time"
)

// BlockTime is the spacing between consecutive blocks of a BlockClock.
const BlockTime = 12 * time.Second

// Block is the origin context of one synthetic block.
type Block struct {
	Number    int64
	Timestamp time.Time
	Hash      string
}

// BlockClock hands out monotonically increasing synthetic blocks for tests.
//
// The same clock, started from the same genesis, always produces the same
// blocks, so fixture inputs and golden output stay byte-identical.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type BlockClock struct {
	mu      sync.Mutex
	genesis time.Time
	number  int64
}

// NewBlockClock creates a clock whose first block is genesis + BlockTime.
// A zero genesis starts at 2024-01-01T00:00:00Z.
func NewBlockClock(genesis time.Time) *BlockClock {
	if genesis.IsZero() {
		genesis = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &BlockClock{genesis: genesis.UTC()}
}

// Next advances to and returns the next block.
func (c *BlockClock) Next() Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.number++
	return c.block(c.number)
}

// Current returns the latest block without advancing. Before the first
// Next it is block 0 at genesis.
func (c *BlockClock) Current() Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block(c.number)
}

// Reset rewinds the clock to genesis.
func (c *BlockClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.number = 0
}

func (c *BlockClock) block(n int64) Block {
	return Block{
		Number:    n,
		Timestamp: c.genesis.Add(time.Duration(n) * BlockTime),
		Hash:      fmt.Sprintf("0x%064x", n),
	}
}
