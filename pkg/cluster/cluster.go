// Package cluster is the transport collaborator of spec.md §6, plus an
// in-memory implementation used by tests and the cmd/signsimd demo. A
// production deployment backs Transport with the secret-store cluster's
// real peer-to-peer networking; this package never claims to be that.
package cluster

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/signsession/pkg/party"
)

// ErrNodeDisconnected is returned by Send when the destination (or this
// node itself) is not currently connected. Broadcast skips such peers and
// does not report them.
var ErrNodeDisconnected = errors.New("cluster: node disconnected")

// Transport is the cluster transport collaborator. Send/Broadcast deliver
// raw, already-sealed wire envelopes (see pkg/wireenv); this package does
// not interpret their contents.
type Transport interface {
	Self() party.ID
	Nodes() party.IDSlice
	IsConnected(id party.ID) bool
	Send(to party.ID, data []byte) error
	Broadcast(data []byte) error
}

// DeliverFunc is how a registered node receives an inbound envelope. It is
// invoked on its own goroutine per message, matching spec.md §5's "inbound
// messages are delivered by any thread of the cluster transport".
type DeliverFunc func(from party.ID, data []byte)

// MemoryCluster is a shared in-memory transport hub: every registered node
// can reach every other connected node.
type MemoryCluster struct {
	mu        sync.RWMutex
	deliver   map[party.ID]DeliverFunc
	connected map[party.ID]bool
}

// NewMemoryCluster creates an empty hub.
func NewMemoryCluster() *MemoryCluster {
	return &MemoryCluster{
		deliver:   make(map[party.ID]DeliverFunc),
		connected: make(map[party.ID]bool),
	}
}

// Register attaches a node's delivery callback and marks it connected.
func (c *MemoryCluster) Register(id party.ID, deliver DeliverFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliver[id] = deliver
	c.connected[id] = true
}

// Disconnect marks a node unreachable, simulating a dropped peer
// (spec.md §8 scenario S2).
func (c *MemoryCluster) Disconnect(id party.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected[id] = false
}

// Reconnect marks a previously disconnected node reachable again.
func (c *MemoryCluster) Reconnect(id party.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected[id] = true
}

// NodeTransport returns the Transport view of the cluster for one node.
func (c *MemoryCluster) NodeTransport(self party.ID) Transport {
	return &nodeHandle{self: self, cluster: c}
}

type nodeHandle struct {
	self    party.ID
	cluster *MemoryCluster
}

func (h *nodeHandle) Self() party.ID { return h.self }

func (h *nodeHandle) Nodes() party.IDSlice {
	h.cluster.mu.RLock()
	defer h.cluster.mu.RUnlock()
	out := make(party.IDSlice, 0, len(h.cluster.deliver))
	for id := range h.cluster.deliver {
		out = append(out, id)
	}
	return out.Sort()
}

func (h *nodeHandle) IsConnected(id party.ID) bool {
	h.cluster.mu.RLock()
	defer h.cluster.mu.RUnlock()
	return h.cluster.connected[id]
}

func (h *nodeHandle) Send(to party.ID, data []byte) error {
	h.cluster.mu.RLock()
	deliver, known := h.cluster.deliver[to]
	selfConnected := h.cluster.connected[h.self]
	toConnected := h.cluster.connected[to]
	h.cluster.mu.RUnlock()

	if !known {
		return errors.Errorf("cluster: unknown node %v", to)
	}
	if !selfConnected || !toConnected {
		return ErrNodeDisconnected
	}

	go deliver(h.self, data)
	return nil
}

func (h *nodeHandle) Broadcast(data []byte) error {
	nodes := h.Nodes()
	g, _ := errgroup.WithContext(context.Background())
	for _, id := range nodes {
		id := id
		if id == h.self {
			continue
		}
		g.Go(func() error {
			if err := h.Send(id, data); err != nil && errors.Is(err, ErrNodeDisconnected) {
				// A disconnected peer is not a broadcast failure; the
				// session's own node-error handling decides whether that
				// is fatal.
				return nil
			} else if err != nil {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
