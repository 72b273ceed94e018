package rtp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pkt(seq uint16) *Packet {
	return &Packet{Header: Header{SequenceNumber: seq}}
}

func TestReorderBufferDrainsInOrder(t *testing.T) {
	rb := NewReorderBuffer(ReorderBufferConfig{WindowSize: 16, DropTimeout: 100 * time.Millisecond})
	base := time.Now()

	var drained []uint16
	drained = append(drained, seqsOf(rb.Insert(pkt(1), base))...)
	drained = append(drained, seqsOf(rb.Insert(pkt(3), base))...)
	drained = append(drained, seqsOf(rb.Insert(pkt(2), base))...)
	drained = append(drained, seqsOf(rb.Insert(pkt(4), base))...)

	assert.Equal(t, []uint16{1, 2, 3, 4}, drained)
}

func TestReorderBufferDropTimeout(t *testing.T) {
	rb := NewReorderBuffer(ReorderBufferConfig{WindowSize: 16, DropTimeout: 100 * time.Millisecond})
	base := time.Now()

	first := seqsOf(rb.Insert(pkt(1), base))
	require.Equal(t, []uint16{1}, first)

	second := seqsOf(rb.Insert(pkt(3), base))
	assert.Empty(t, second)

	late := seqsOf(rb.Insert(pkt(5), base.Add(150*time.Millisecond)))
	assert.Equal(t, []uint16{3}, late)
}

func TestReorderBufferFlushDrainsWithoutNewArrival(t *testing.T) {
	rb := NewReorderBuffer(ReorderBufferConfig{WindowSize: 16, DropTimeout: 100 * time.Millisecond})
	base := time.Now()

	first := seqsOf(rb.Insert(pkt(1), base))
	require.Equal(t, []uint16{1}, first)

	second := seqsOf(rb.Insert(pkt(3), base))
	assert.Empty(t, second)

	// No further packet ever arrives; only a tick drives the drain.
	flushed := seqsOf(rb.Flush(base.Add(150 * time.Millisecond)))
	assert.Equal(t, []uint16{3}, flushed)
}

func TestReorderBufferFlushNoOpOnEmptyBuffer(t *testing.T) {
	rb := NewReorderBuffer(ReorderBufferConfig{WindowSize: 16, DropTimeout: 100 * time.Millisecond})
	assert.Empty(t, rb.Flush(time.Now()))
}

func TestReorderBufferForceDrainCallbackFiresOnTimeout(t *testing.T) {
	rb := NewReorderBuffer(ReorderBufferConfig{WindowSize: 16, DropTimeout: 100 * time.Millisecond})
	calls := 0
	rb.SetForceDrainCallback(func() { calls++ })
	base := time.Now()

	rb.Insert(pkt(1), base)
	rb.Insert(pkt(3), base)
	rb.Flush(base.Add(150 * time.Millisecond))

	assert.Equal(t, 1, calls)
}

func seqsOf(pkts []*Packet) []uint16 {
	var out []uint16
	for _, p := range pkts {
		out = append(out, p.Header.SequenceNumber)
	}
	return out
}
