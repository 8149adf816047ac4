// Package receiveresult implements the single-shot handshake object by
// which a sender awaits a receiver's outcome: ack, handler result, or
// cancellation. It is the routing fabric's analogue of tinode/chat's
// ServerComMessage reply path, but modeled as an explicit promise rather
// than a fire-and-forget channel send, since spec.md requires exactly-once
// completion semantics the teacher's channel sends don't provide on their
// own.
package receiveresult

import (
	"context"
	"sync"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/message"
)

// Outcome tags which of the three terminal states a ReceiveResult settled
// into.
type Outcome int

const (
	// Pending means result has not yet completed.
	Pending Outcome = iota
	// Ack means the receiver completed without a route-message.
	Ack
	// Result means the receiver completed with a handler result.
	Result
	// Canceled means the exchange was canceled before completion: the
	// receiver observed the sender's own cancellation token.
	Canceled
	// Disposed means the item was drained off an inbox that closed out
	// from under it — the receiving endpoint or cluster disposed before
	// ever handing this item to a handler. Distinct from Canceled because
	// it reports a different cause to the sender: spec.md §4.B's soft
	// failure ("disposal of the receiver during delivery yields default
	// rather than raising"), not the sender's own cancellation.
	Disposed
)

// Completion is the terminal value a ReceiveResult's Done channel
// produces.
type Completion struct {
	Outcome      Outcome
	HandleResult message.HandleResult
}

// ReceiveResult is the single-use promise returned to a sender. It carries
// the inbound message, the remote endpoint address, the sender's
// cancellation token, and settles to exactly one of {ack, handler result,
// cancellation}.
type ReceiveResult struct {
	// Msg is immutable after construction.
	Msg *message.Message
	// Remote is immutable after construction: the address the sender
	// addressed this to.
	Remote address.Address
	// Cancel is the sender-side cancellation the receiver observes.
	Cancel context.Context

	mu   sync.Mutex
	done chan Completion
	set  bool
}

// New builds a ReceiveResult for msg sent to remote, observing the
// sender's cancellation context cancel.
func New(msg *message.Message, remote address.Address, cancel context.Context) *ReceiveResult {
	return &ReceiveResult{
		Msg:    msg,
		Remote: remote,
		Cancel: cancel,
		done:   make(chan Completion, 1),
	}
}

// Done returns the channel that receives the single terminal completion.
func (r *ReceiveResult) Done() <-chan Completion {
	return r.done
}

// complete is the only place that writes to done; it enforces
// exactly-once, silently dropping later attempts (spec.md §4.A: "A
// completion attempt after the first is a no-op.").
func (r *ReceiveResult) complete(c Completion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.set {
		return
	}
	r.set = true
	r.done <- c
	close(r.done)
}

// SendAck completes with Route-Message-Handle-Result(default, handled=true).
func (r *ReceiveResult) SendAck() {
	r.complete(Completion{Outcome: Ack, HandleResult: message.HandleResult{Handled: true}})
}

// SendResult completes with the given handler result.
func (r *ReceiveResult) SendResult(hr message.HandleResult) {
	r.complete(Completion{Outcome: Result, HandleResult: hr})
}

// SendCancellation transitions the result to canceled.
func (r *ReceiveResult) SendCancellation() {
	r.complete(Completion{Outcome: Canceled})
}

// SendDisposed transitions the result to disposed: the inbox holding this
// item closed before a handler ever saw it. Used when draining an inbox on
// dispose (see internal/routing), never by a route-message handler itself.
func (r *ReceiveResult) SendDisposed() {
	r.complete(Completion{Outcome: Disposed})
}

// Wait blocks until the result settles or ctx is done, whichever is first.
// ctx should already be linked with both the caller's own cancellation and
// the receiver's disposal token (spec.md §5).
func (r *ReceiveResult) Wait(ctx context.Context) (Completion, error) {
	select {
	case c := <-r.done:
		return c, nil
	case <-ctx.Done():
		return Completion{}, ctx.Err()
	}
}
