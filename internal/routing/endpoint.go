package routing

import (
	"context"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/message"
	"github.com/kprice/routefabric/internal/receiveresult"
)

// Endpoint is one cluster-node instance bound to a logical address
// (component B). It owns an unbounded inbound buffer and exposes
// receive/send/dispose, mirroring the way tinode/chat's Topic owns a
// broadcast channel and a done/unreg signal but scoped to a single
// cluster replica instead of a whole topic.
type Endpoint struct {
	address address.Address
	node    address.NodeID
	cluster *Cluster

	inbox *inbox

	ctx    context.Context
	cancel context.CancelFunc
}

func newEndpoint(cluster *Cluster, node address.NodeID) *Endpoint {
	ctx, cancel := context.WithCancel(context.Background())
	return &Endpoint{
		address: cluster.Address,
		node:    node,
		cluster: cluster,
		inbox:   newInbox(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Address returns the endpoint's logical address (inherited from its
// cluster).
func (e *Endpoint) Address() address.Address { return e.address }

// Node returns the endpoint's cluster-node identifier.
func (e *Endpoint) Node() address.NodeID { return e.node }

// Disposed reports whether the endpoint has been disposed.
func (e *Endpoint) Disposed() bool {
	select {
	case <-e.ctx.Done():
		return true
	default:
		return false
	}
}

// Done returns the endpoint's disposal token, observed by in-flight
// senders and receivers so they can unblock when it disposes.
func (e *Endpoint) Done() <-chan struct{} {
	return e.ctx.Done()
}

// Receive awaits the next item from either the endpoint's own inbox or
// its cluster's broadcast inbox, whichever delivers first (spec.md §4.B).
// It fails with ErrDisposed if the endpoint has been disposed, and
// respects cancellation of ctx.
func (e *Endpoint) Receive(ctx context.Context) (*receiveresult.ReceiveResult, error) {
	if e.Disposed() {
		return nil, ErrDisposed
	}
	for {
		if rr, ok := e.inbox.tryPop(); ok {
			return rr, nil
		}
		if rr, ok := e.cluster.broadcast.tryPop(); ok {
			return rr, nil
		}
		select {
		case <-e.inbox.waitChan():
		case <-e.cluster.broadcast.waitChan():
		case <-e.ctx.Done():
			return nil, ErrDisposed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Send delivers msg to (remoteAddr, remoteNode). If remoteAddr/remoteNode
// equal this endpoint's own (address, node), it is a local, same-node
// delivery straight onto this endpoint's own inbox. Otherwise it is
// delegated to the routing system, per spec.md §4.B.
func (e *Endpoint) Send(ctx context.Context, msg *message.Message, remoteAddr address.Address, remoteNode address.NodeID) (message.HandleResult, error) {
	if e.Disposed() {
		return message.HandleResult{}, ErrDisposed
	}

	rr := receiveresult.New(msg, remoteAddr, ctx)

	var target *inbox
	switch {
	case remoteAddr == e.address && remoteNode == e.node:
		target = e.inbox
	default:
		cluster, ok := e.cluster.sys.lookup(remoteAddr)
		if !ok {
			return message.HandleResult{}, nil // soft failure: default result
		}
		if remoteNode.IsDefault() {
			target = cluster.broadcast
		} else {
			node, ok := cluster.getNode(remoteNode)
			if !ok {
				return message.HandleResult{}, nil // soft failure
			}
			target = node.inbox
		}
	}

	if !target.push(rr) {
		// Target evaporated between lookup and push: soft failure, not
		// an exception (spec.md §4.B "Failure semantics").
		return message.HandleResult{}, nil
	}

	linked, cancel := e.linkedSendContext(ctx)
	defer cancel()

	completion, err := rr.Wait(linked)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return message.HandleResult{}, ctx.Err()
		case e.Disposed():
			// Disposal of the sender raises (spec.md §4.B).
			return message.HandleResult{}, ErrDisposed
		default:
			// Receiver disposed mid-delivery: soft failure, not an
			// error (spec.md §4.B: "disposal of the receiver during
			// delivery yields default rather than raising").
			return message.HandleResult{}, nil
		}
	}
	switch completion.Outcome {
	case receiveresult.Disposed:
		// The inbox holding rr closed before a handler ever saw it: the
		// receiver evaporated mid-delivery. Soft failure, not an error
		// (spec.md §4.B, §8 scenario 6).
		return message.HandleResult{}, nil
	case receiveresult.Canceled:
		// The receiver observed the sender's own cancellation token and
		// reported it back; a genuine cancellation is surfaced, not
		// softened.
		return message.HandleResult{}, context.Canceled
	default:
		return completion.HandleResult, nil
	}
}

// linkedSendContext links (router-disposal via the sending endpoint's own
// disposal, the caller's token) per spec.md §5.
func (e *Endpoint) linkedSendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	linked, cancel := context.WithCancel(ctx)
	stop := make(chan struct{})
	go func() {
		select {
		case <-e.ctx.Done():
			cancel()
		case <-stop:
		}
	}()
	return linked, func() {
		close(stop)
		cancel()
	}
}

// Dispose cancels the endpoint's disposal token, removes it from its
// cluster (which may cascade into cluster self-disposal), and rejects
// further operations.
func (e *Endpoint) Dispose() {
	if e.Disposed() {
		return
	}
	e.cancel()
	e.inbox.close()
	e.cluster.removeNode(e.node)
}

// forceDispose cancels the endpoint without notifying its cluster. Used
// when the cluster itself is already tearing down and iterating its own
// node snapshot, to avoid re-entering the cluster's mutex.
func (e *Endpoint) forceDispose() {
	if e.Disposed() {
		return
	}
	e.cancel()
	e.inbox.close()
}
