package routing

import (
	"sync"

	"github.com/kprice/routefabric/internal/receiveresult"
)

// inbox is the unbounded single-producer(-many)/multiple-consumer FIFO
// queue backing an endpoint's own mailbox and a cluster's broadcast
// mailbox (spec.md §3). It is unbounded the way tinode/chat's hub.route
// channel is effectively unbounded in practice (buffered well beyond
// steady-state load) but here genuinely grows without a cap, trading
// memory for the "never block a sender" guarantee spec.md §5 implies by
// never describing a backpressure mechanism.
type inbox struct {
	mu     sync.Mutex
	items  []*receiveresult.ReceiveResult
	notify chan struct{}
	closed bool
}

func newInbox() *inbox {
	return &inbox{notify: make(chan struct{}, 1)}
}

// push enqueues rr. It returns false if the inbox is closed.
func (q *inbox) push(rr *receiveresult.ReceiveResult) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, rr)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// tryPop removes and returns the front item, if any. Concurrent callers
// race for the same item fairly via the mutex — this is what makes
// broadcast delivery "first receiver wins" (spec.md §4.C).
func (q *inbox) tryPop() (*receiveresult.ReceiveResult, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// waitChan returns the channel a waiter should select on to be woken when
// an item might be available. Spuriously wakeable; callers must re-check
// with tryPop.
func (q *inbox) waitChan() <-chan struct{} {
	return q.notify
}

// close marks the inbox closed (no further pushes accepted) and drains
// any remaining items, reporting disposal to their senders (not
// cancellation: spec.md §4.B's soft failure, since nothing will ever pop
// these through the normal receive path) — a sender-observed cancellation
// is not sent here, only the receiver evaporating.
func (q *inbox) close() {
	q.mu.Lock()
	q.closed = true
	remaining := q.items
	q.items = nil
	q.mu.Unlock()
	for _, rr := range remaining {
		rr.SendDisposed()
	}
}
