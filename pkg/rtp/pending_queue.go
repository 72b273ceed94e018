package rtp

import (
	"net"
	"sync"
)

// PendingQueueCapacity is the bound on cached packets awaiting a security
// context (§4.6, §8 "pending queue never exceeds 32 entries").
const PendingQueueCapacity = 32

// PendingPackage is one RTP datagram cached while SRTP keying is still in
// flight (§3).
type PendingPackage struct {
	Header       Header
	LocalPort    int
	RemoteEndpoint net.Addr
	Raw          []byte
}

// PendingQueue is a bounded FIFO with oldest-drop overflow policy, guarded
// by its own mutex so it can be safely drained from a different goroutine
// than the one feeding it (§5: "pending-queue mutations are serialised by a
// per-stream mutex").
type PendingQueue struct {
	mu    sync.Mutex
	items []PendingPackage
	cap   int
}

// NewPendingQueue constructs an empty queue bounded at PendingQueueCapacity.
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{cap: PendingQueueCapacity}
}

// Push appends pkg, dropping the oldest entry first if the queue is full.
func (q *PendingQueue) Push(pkg PendingPackage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.cap {
		q.items = q.items[1:]
	}
	q.items = append(q.items, pkg)
}

// Len reports the current queue depth.
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// DrainAndClear atomically snapshots and clears the queue, returning the
// snapshot in arrival order. Per §4.6/§9 this is the single atomic drain
// point: the caller is expected to re-feed each entry through the receive
// path exactly once, observing the stream's *current* closed state rather
// than one captured before the drain.
func (q *PendingQueue) DrainAndClear() []PendingPackage {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.items
	q.items = nil
	return drained
}

// Clear discards all queued entries without returning them (used on
// stream close, §3 lifecycle).
func (q *PendingQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}
