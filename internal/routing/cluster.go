package routing

import (
	"context"
	"sync"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/receiveresult"
)

// IDGenerator mints a fresh cluster-node identifier for externally-created
// nodes. The default is a plain counter guarded by the cluster mutex;
// SnowflakeIDGenerator (nodeid.go) builds one backed by
// github.com/tinode/snowflake for globally-unique, time-ordered ids, which
// cmd/routerfabricd passes to routing.New (see DESIGN.md).
type IDGenerator func() address.NodeID

// Cluster owns every cluster-node instance sharing one logical address
// (component C): the broadcast inbox fed by node-less sends, the per-node
// map, and the monotonic id counter for externally-created nodes.
type Cluster struct {
	Address address.Address

	sys *System

	mu       sync.Mutex
	nodes    map[address.NodeID]*Endpoint
	disposed bool
	nextID   uint64
	genID    IDGenerator

	broadcast *inbox

	ctx    context.Context
	cancel context.CancelFunc
}

func newCluster(sys *System, addr address.Address, genID IDGenerator) *Cluster {
	ctx, cancel := context.WithCancel(context.Background())
	return &Cluster{
		Address:   addr,
		sys:       sys,
		nodes:     make(map[address.NodeID]*Endpoint),
		broadcast: newInbox(),
		genID:     genID,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Disposed reports whether the cluster has been disposed.
func (c *Cluster) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// getNode returns the node with the given id, if present.
func (c *Cluster) getNode(id address.NodeID) (*Endpoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id]
	return n, ok
}

// newNodeID allocates a fresh id, preferring the injected generator and
// falling back to the monotonic counter encoded as a fixed-width byte
// string (spec.md §9).
func (c *Cluster) newNodeID() address.NodeID {
	if c.genID != nil {
		return c.genID()
	}
	c.nextID++
	return address.NodeIDFromUint64(c.nextID)
}

// CreateNode allocates a fresh cluster-node id and constructs a new
// Endpoint bound to it. If the cluster was disposed concurrently with
// construction, the orphaned endpoint is disposed immediately and
// ErrDisposed is returned (spec.md §4.C, §5 "Create-node vs
// cluster-dispose").
func (c *Cluster) CreateNode() (*Endpoint, error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, ErrDisposed
	}
	id := c.newNodeID()
	ep := newEndpoint(c, id)
	c.nodes[id] = ep
	// Re-check disposal after insertion: a concurrent disposeLocked could
	// have run between our disposed-check above and the insert below only
	// if it also holds c.mu — it can't, we still hold the lock. The
	// re-check exists for defense in depth against future refactors that
	// might narrow the critical section.
	stillDisposed := c.disposed
	c.mu.Unlock()

	if stillDisposed {
		ep.forceDispose()
		return nil, ErrDisposed
	}
	return ep, nil
}

// removeNode erases id from the node map. If the map becomes empty, the
// cluster disposes itself while still holding the lock, closing the race
// where a concurrent CreateNode could otherwise receive a handle to a
// cluster that is about to disappear (spec.md §4.C).
func (c *Cluster) removeNode(id address.NodeID) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	delete(c.nodes, id)
	empty := len(c.nodes) == 0
	if empty {
		c.disposeLocked()
	}
	c.mu.Unlock()
}

// Deliver enqueues rr onto the given node's inbox, or the cluster's
// broadcast inbox if node is the default (broadcast-eligible) value. It
// is the same enqueue path Endpoint.Send uses internally, exported for
// internal/bridge so a cross-process forward can re-deliver a message
// into this process's local cluster exactly as a local sender would.
func (c *Cluster) Deliver(node address.NodeID, rr *receiveresult.ReceiveResult) bool {
	if node.IsDefault() {
		return c.broadcast.push(rr)
	}
	n, ok := c.getNode(node)
	if !ok {
		return false
	}
	return n.inbox.push(rr)
}

// Dispose tears the cluster down: cancels the disposal token, disposes
// every node, completes and drains the broadcast buffer, and removes
// itself from the routing system. Safe to call when the cluster is
// already disposed.
func (c *Cluster) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposeLocked()
}

// disposeLocked performs the actual teardown. Caller must hold c.mu.
func (c *Cluster) disposeLocked() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.cancel()

	nodes := make([]*Endpoint, 0, len(c.nodes))
	for _, n := range c.nodes {
		nodes = append(nodes, n)
	}
	c.nodes = make(map[address.NodeID]*Endpoint)

	c.broadcast.close()

	for _, n := range nodes {
		n.forceDispose()
	}

	c.sys.removeCluster(c.Address, c)
}
