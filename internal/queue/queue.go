// Package queue holds the side effects a batch accumulates: published
// change notifications and contract registrations.
//
// Buffers are append-only and scoped to one batch. They are not safe for
// concurrent use; a batch is processed by a single goroutine.
package queue

import "slices"

// Event is a change notification for an external publisher.
type Event struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

// ContractRegistration asks the indexer to start watching a contract as a
// member of a contract group.
type ContractRegistration struct {
	Address string `json:"address"`
	ChainID string `json:"chainId"`
	Group   string `json:"group"`
}

// Buffer is an unbounded ordered buffer.
type Buffer[T any] struct {
	items []T
}

// Push appends an item.
func (b *Buffer[T]) Push(item T) {
	b.items = append(b.items, item)
}

// Len returns the number of buffered items.
func (b *Buffer[T]) Len() int {
	return len(b.items)
}

// Items returns a copy of the buffered items in insertion order.
func (b *Buffer[T]) Items() []T {
	return slices.Clone(b.items)
}

// Since returns a copy of the items pushed after the first n.
func (b *Buffer[T]) Since(n int) []T {
	if n >= len(b.items) {
		return nil
	}
	return slices.Clone(b.items[n:])
}

// Queues bundles the buffers records share while handling one batch.
type Queues struct {
	Events    Buffer[Event]
	Contracts Buffer[ContractRegistration]
}

// New returns empty queues.
func New() *Queues {
	return &Queues{}
}

// Mark records the current lengths so a caller can later read what was
// added after this point.
func (q *Queues) Mark() Mark {
	return Mark{events: q.Events.Len(), contracts: q.Contracts.Len()}
}

// Mark is a position in a Queues.
type Mark struct {
	events    int
	contracts int
}

// After returns what was pushed to each buffer since m.
func (q *Queues) After(m Mark) ([]Event, []ContractRegistration) {
	return q.Events.Since(m.events), q.Contracts.Since(m.contracts)
}
