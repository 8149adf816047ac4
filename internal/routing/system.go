// Package routing implements the routing fabric's registry of logical
// end-points (components B, C, D of spec.md §2): the Endpoint
// (cluster-node instance), the Cluster (all nodes sharing one address),
// and the System (registry of clusters by address). They are kept in one
// package because they are cyclically referential by design (spec.md §9):
// an Endpoint's Send delegates to its Cluster, which delegates to the
// System, which hands back a different Cluster, whose node is an
// Endpoint — strong ownership flows System -> Cluster -> Endpoint
// top-down, and the back-references used above are observer handles, not
// ownership, the way tinode/chat's Session holds a *ClusterNode without
// owning its lifecycle.
package routing

import (
	"sync"

	"github.com/kprice/routefabric/internal/address"
)

// System is the registry of clusters indexed by logical address
// (component D). It creates cluster-node endpoints and handles global
// disposal, the way tinode/chat's Hub indexes Topics in a *sync.Map — but
// with an explicit mutex, since System additionally enforces "one cluster
// per address" at creation time.
type System struct {
	mu       sync.Mutex
	clusters map[address.Address]*Cluster
	disposed bool
	genID    IDGenerator
}

// New builds an empty System. genID, if non-nil, is used by every cluster
// created through this system to mint externally-created node ids.
func New(genID IDGenerator) *System {
	return &System{
		clusters: make(map[address.Address]*Cluster),
		genID:    genID,
	}
}

// Create constructs a new cluster for addr and its first external
// endpoint. Fails with ErrAlreadyPresent if addr is already registered,
// or ErrDisposed if the system has been disposed (spec.md §4.D).
func (s *System) Create(addr address.Address) (*Endpoint, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrDisposed
	}
	if _, ok := s.clusters[addr]; ok {
		s.mu.Unlock()
		return nil, ErrAlreadyPresent
	}
	cluster := newCluster(s, addr, s.genID)
	s.clusters[addr] = cluster
	s.mu.Unlock()

	ep, err := cluster.CreateNode()
	if err != nil {
		// Cluster was disposed between insertion and node creation
		// (shouldn't happen absent a concurrent System-wide Dispose, but
		// handled defensively): drop the orphaned entry.
		s.removeCluster(addr, cluster)
		return nil, err
	}
	return ep, nil
}

// lookup returns the cluster for addr, if any.
func (s *System) lookup(addr address.Address) (*Cluster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clusters[addr]
	return c, ok
}

// Cluster exposes lookup publicly for callers outside this package (e.g.
// internal/bridge's Serve, which re-delivers a forwarded message into the
// local cluster for its target address).
func (s *System) Cluster(addr address.Address) (*Cluster, bool) {
	return s.lookup(addr)
}

// removeCluster erases addr from the map iff it still refers to c,
// protecting against ABA races on address reuse (spec.md §4.D).
func (s *System) removeCluster(addr address.Address, c *Cluster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.clusters[addr]; ok && cur == c {
		delete(s.clusters, addr)
	}
}

// Dispose snapshots all clusters and disposes each in parallel. Further
// Create calls raise ErrDisposed.
func (s *System) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	clusters := make([]*Cluster, 0, len(s.clusters))
	for _, c := range s.clusters {
		clusters = append(clusters, c)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(len(clusters))
	for _, c := range clusters {
		c := c
		go func() {
			defer wg.Done()
			c.Dispose()
		}()
	}
	wg.Wait()
}

// Disposed reports whether the system has been disposed.
func (s *System) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
