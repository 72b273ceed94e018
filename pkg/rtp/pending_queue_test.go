package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingQueueOverflowDropsOldest(t *testing.T) {
	q := NewPendingQueue()

	for i := 0; i < PendingQueueCapacity+1; i++ {
		q.Push(PendingPackage{Header: Header{SequenceNumber: uint16(i)}})
	}

	require.Equal(t, PendingQueueCapacity, q.Len())

	drained := q.DrainAndClear()
	require.Len(t, drained, PendingQueueCapacity)
	// Entry 0 was the oldest and should have been evicted by entry 32.
	assert.Equal(t, uint16(1), drained[0].Header.SequenceNumber)
	assert.Equal(t, uint16(PendingQueueCapacity), drained[len(drained)-1].Header.SequenceNumber)
}

func TestPendingQueueDrainIsExactlyOnce(t *testing.T) {
	q := NewPendingQueue()
	q.Push(PendingPackage{Header: Header{SequenceNumber: 1}})
	q.Push(PendingPackage{Header: Header{SequenceNumber: 2}})

	first := q.DrainAndClear()
	require.Len(t, first, 2)

	second := q.DrainAndClear()
	assert.Empty(t, second)
	assert.Equal(t, 0, q.Len())
}

func TestPendingQueueClear(t *testing.T) {
	q := NewPendingQueue()
	q.Push(PendingPackage{Header: Header{SequenceNumber: 1}})
	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.DrainAndClear())
}
