package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferOrder(t *testing.T) {
	var b Buffer[string]
	b.Push("A")
	b.Push("B")
	b.Push("C")

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []string{"A", "B", "C"}, b.Items())
	assert.Equal(t, []string{"B", "C"}, b.Since(1))
	assert.Nil(t, b.Since(3))
}

func TestBufferItemsIsACopy(t *testing.T) {
	var b Buffer[int]
	b.Push(1)

	items := b.Items()
	items[0] = 99
	assert.Equal(t, []int{1}, b.Items())
}

func TestEmptyBuffer(t *testing.T) {
	var b Buffer[Event]
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Items())
}

func TestQueuesMark(t *testing.T) {
	q := New()
	q.Events.Push(Event{Name: "acme.TokenChanged@1"})

	m := q.Mark()
	q.Events.Push(Event{Name: "acme.VaultChanged@1"})
	q.Contracts.Push(ContractRegistration{Address: "0x1", ChainID: "1", Group: "acme.vault"})

	events, contracts := q.After(m)
	assert.Equal(t, []Event{{Name: "acme.VaultChanged@1"}}, events)
	assert.Equal(t, []ContractRegistration{{Address: "0x1", ChainID: "1", Group: "acme.vault"}}, contracts)
}
