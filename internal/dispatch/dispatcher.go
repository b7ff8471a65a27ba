package dispatch

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ahmadawais/wordpress-playground/internal/correlate"
	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/logging"
	"github.com/ahmadawais/wordpress-playground/internal/protocol"
	"github.com/ahmadawais/wordpress-playground/internal/shared/id"
)

// Registry tracks connected browser contexts and which of them are
// claimed (controlled) by the gateway.
type Registry struct {
	mu        sync.RWMutex
	clients   map[id.ClientID]*Client
	autoClaim bool
}

// NewRegistry creates an empty client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[id.ClientID]*Client)}
}

// Add registers a client. Clients connecting after activation are
// claimed immediately; earlier ones wait for ClaimAll.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	c.claimed = r.autoClaim
	r.clients[c.id] = c
	r.mu.Unlock()
}

// Remove drops a client from the registry.
func (r *Registry) Remove(clientID id.ClientID) {
	r.mu.Lock()
	delete(r.clients, clientID)
	r.mu.Unlock()
}

// ClaimAll claims every registered client and every future one. This
// is the activation side effect: contexts that connected before the
// gateway became active are served without reconnecting.
func (r *Registry) ClaimAll() {
	r.mu.Lock()
	r.autoClaim = true
	for _, c := range r.clients {
		c.claimed = true
	}
	r.mu.Unlock()
}

// Claimed returns a snapshot of the currently claimed clients.
func (r *Registry) Claimed() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		if c.claimed {
			out = append(out, c)
		}
	}
	return out
}

// Count reports registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Dispatcher broadcasts tagged request messages to every claimed client.
type Dispatcher struct {
	registry *Registry
	ids      *correlate.Correlator
	logger   *logging.Logger
}

// NewDispatcher creates a dispatcher over a registry, drawing
// correlation ids from the given correlator.
func NewDispatcher(registry *Registry, ids *correlate.Correlator, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		ids:      ids,
		logger:   logger,
	}
}

// Registry exposes the underlying client registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Broadcast tags msg with a correlation id and posts it to every
// claimed client unconditionally. An untagged message gets a fresh id;
// a caller that registered a waiter first passes the message already
// tagged. Individual send failures are logged and skipped: a dead
// connection must not fail the broadcast for the owning context.
func (d *Dispatcher) Broadcast(msg *protocol.RequestMessage) (int64, int) {
	if msg.RequestID == 0 {
		msg.RequestID = d.ids.NextID()
	}

	clients := d.registry.Claimed()
	sent := 0
	for _, c := range clients {
		if err := c.Send(msg); err != nil {
			d.logger.Warn("broadcast send failed",
				zap.String("client_id", c.ID().String()),
				zap.Int64("request_id", msg.RequestID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return msg.RequestID, sent
}
