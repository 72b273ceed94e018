package rtp

import (
	"sync"
	"time"
)

// ReorderBufferConfig configures a ReorderBuffer's window size and the
// drop-timeout applied to a stalled head-of-line packet (§4.5).
type ReorderBufferConfig struct {
	// WindowSize bounds how many packets may be held awaiting the missing
	// head sequence number before the oldest entries are forced out.
	WindowSize int
	// DropTimeout is how long the head-of-line packet may wait for its
	// predecessor before it is emitted out of order anyway.
	DropTimeout time.Duration
}

func (c ReorderBufferConfig) withDefaults() ReorderBufferConfig {
	if c.WindowSize <= 0 {
		c.WindowSize = 64
	}
	if c.DropTimeout <= 0 {
		c.DropTimeout = 100 * time.Millisecond
	}
	return c
}

type bufferedPacket struct {
	seq     uint16
	arrival time.Time
	packet  *Packet
}

// ReorderBuffer holds a bounded window of packets keyed by sequence number
// (mod 2^16) and drains them in order, absorbing small amounts of network
// reordering without adding unbounded latency (§4.5, §8 scenario 3).
//
// It is not a jitter buffer: it reorders by sequence number only and never
// looks at RTP timestamps or paces playout.
type ReorderBuffer struct {
	cfg ReorderBufferConfig

	mu       sync.Mutex
	pending  map[uint16]bufferedPacket
	nextSeq  uint16
	hasNext  bool
	headSeen time.Time

	onForceDrain func()
}

// NewReorderBuffer constructs a buffer with the given configuration.
func NewReorderBuffer(cfg ReorderBufferConfig) *ReorderBuffer {
	return &ReorderBuffer{
		cfg:     cfg.withDefaults(),
		pending: make(map[uint16]bufferedPacket),
	}
}

// DropTimeout returns the configured (defaulted) drop-timeout, so a caller
// driving Flush from a timer can size its tick interval off it.
func (b *ReorderBuffer) DropTimeout() time.Duration {
	return b.cfg.DropTimeout
}

// SetForceDrainCallback installs fn to be invoked whenever forceAdvance jumps
// nextSeq past a stalled head-of-line packet. Per §9's "invert cyclic
// back-references" design note the buffer never holds a pointer to its
// owner; it only calls back through this hook.
func (b *ReorderBuffer) SetForceDrainCallback(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onForceDrain = fn
}

// Flush emits any packets the normal Insert-driven drain would have emitted
// by now, even when no new packet has arrived to trigger it: a stalled
// head-of-line packet is only force-advanced once DropTimeout has elapsed,
// and Insert is the only thing that checks that — so a caller with no
// further arrivals must drive this some other way (§4.5). Safe to call on
// an empty buffer.
func (b *ReorderBuffer) Flush(now time.Time) []*Packet {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasNext {
		return nil
	}
	return b.drain(now)
}

// Insert adds p (already sequence-bearing) to the buffer and returns the
// packets now ready for delivery, in order. Duplicate sequence numbers are
// dropped silently (the caller may log).
func (b *ReorderBuffer) Insert(p *Packet, now time.Time) []*Packet {
	seq := p.Header.SequenceNumber

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasNext {
		b.hasNext = true
		b.nextSeq = seq
		b.headSeen = now
	}

	if _, dup := b.pending[seq]; dup {
		return nil
	}
	if seq == b.nextSeq-1 && len(b.pending) == 0 {
		// Already-delivered retransmit arriving late; ignore.
		return nil
	}

	b.pending[seq] = bufferedPacket{seq: seq, arrival: now, packet: p}

	var forced []*Packet
	for len(b.pending) > b.cfg.WindowSize {
		b.forceAdvance()
		if entry, ok := b.pending[b.nextSeq]; ok {
			delete(b.pending, b.nextSeq)
			forced = append(forced, entry.packet)
			b.nextSeq++
			b.headSeen = now
		}
	}

	return append(forced, b.drain(now)...)
}

// drain must be called with b.mu held. It emits packets while the head of
// line equals nextSeq, then — if the head has been waiting longer than
// DropTimeout — forces the head out and continues.
func (b *ReorderBuffer) drain(now time.Time) []*Packet {
	var out []*Packet
	for {
		entry, ok := b.pending[b.nextSeq]
		if ok {
			delete(b.pending, b.nextSeq)
			out = append(out, entry.packet)
			b.nextSeq++
			b.headSeen = now
			continue
		}

		if len(b.pending) == 0 {
			return out
		}
		if now.Sub(b.headSeen) < b.cfg.DropTimeout {
			return out
		}
		b.forceAdvance()
		entry, ok = b.pending[b.nextSeq]
		if ok {
			delete(b.pending, b.nextSeq)
			out = append(out, entry.packet)
			b.nextSeq++
			b.headSeen = now
			continue
		}
		return out
	}
}

// forceAdvance must be called with b.mu held; it is invoked when the head
// of line has stalled past DropTimeout (or the window overflowed). It
// advances nextSeq to the lowest pending sequence number reachable by
// forward distance, emitting nothing itself — callers re-check b.pending
// for the new nextSeq immediately after.
func (b *ReorderBuffer) forceAdvance() {
	if len(b.pending) == 0 {
		b.nextSeq++
		if b.onForceDrain != nil {
			b.onForceDrain()
		}
		return
	}
	best := uint16(0)
	bestDist := -1
	for seq := range b.pending {
		d := int(SequenceDistance(b.nextSeq, seq))
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = seq
		}
	}
	b.nextSeq = best
	if b.onForceDrain != nil {
		b.onForceDrain()
	}
}

// Len returns the current number of held-back packets (test/diagnostic use).
func (b *ReorderBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
