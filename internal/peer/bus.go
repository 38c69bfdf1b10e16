package peer

import "sync"

// Handler processes one envelope received from fromNodeID.
type Handler func(fromNodeID string, env Envelope)

// Bus is an in-process stand-in for peer transport, adapted from the
// teacher's SimulatedNetwork: every registered node can Broadcast to every
// other registered node by direct call. Real network I/O (dialing,
// framing, reconnection backoff) is out of scope per spec.md's non-goals;
// this exists only so the envelope format above has a caller to exercise
// it end to end in tests.
type Bus struct {
	mu    sync.RWMutex
	nodes map[string]Handler
}

// NewBus builds an empty peer bus.
func NewBus() *Bus {
	return &Bus{nodes: make(map[string]Handler)}
}

// Register attaches handler as nodeID's inbound envelope sink.
func (b *Bus) Register(nodeID string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodes[nodeID] = handler
}

// Unregister removes nodeID's handler.
func (b *Bus) Unregister(nodeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.nodes, nodeID)
}

// Broadcast delivers env to every registered node other than fromNodeID.
func (b *Bus) Broadcast(fromNodeID string, env Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, handler := range b.nodes {
		if id == fromNodeID {
			continue
		}
		handler(fromNodeID, env)
	}
}

// Send delivers env to exactly one node, if registered.
func (b *Bus) Send(toNodeID string, fromNodeID string, env Envelope) {
	b.mu.RLock()
	handler, ok := b.nodes[toNodeID]
	b.mu.RUnlock()
	if ok {
		handler(fromNodeID, env)
	}
}
