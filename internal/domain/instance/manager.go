package instance

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahmadawais/wordpress-playground/internal/scope"
	"github.com/ahmadawais/wordpress-playground/internal/shared/id"
)

var (
	// ErrNotFound indicates an unknown scope token.
	ErrNotFound = errors.New("instance: not found")
	// ErrInvalidScope indicates a token outside the embedding alphabet.
	ErrInvalidScope = errors.New("instance: invalid scope token")
)

// Instance is one registered engine instance.
type Instance struct {
	Scope     string      `json:"scope"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
	ClientID  id.ClientID `json:"client_id,omitempty"`
	Attached  bool        `json:"attached"`
}

// Manager tracks engine instances. State is in-memory and per-session.
type Manager struct {
	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewManager creates an empty instance registry.
func NewManager() *Manager {
	return &Manager{instances: make(map[string]*Instance)}
}

// Create registers a new instance under a freshly minted scope token.
func (m *Manager) Create(name string) *Instance {
	inst := &Instance{
		Scope:     uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.instances[inst.Scope] = inst
	m.mu.Unlock()

	return inst
}

// Get looks up an instance by scope token.
func (m *Manager) Get(token string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[token]
	if !ok {
		return nil, false
	}
	copied := *inst
	return &copied, true
}

// List returns all instances ordered by creation time.
func (m *Manager) List() []*Instance {
	m.mu.RLock()
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		copied := *inst
		out = append(out, &copied)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Remove deletes an instance.
func (m *Manager) Remove(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[token]; !ok {
		return ErrNotFound
	}
	delete(m.instances, token)
	return nil
}

// Attach records which client context owns an instance's engine. A
// token unknown to the registry is registered implicitly so engines
// that mint their own scopes still show up in listings.
func (m *Manager) Attach(token string, clientID id.ClientID) error {
	if !scope.ValidToken(token) {
		return ErrInvalidScope
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[token]
	if !ok {
		inst = &Instance{
			Scope:     token,
			CreatedAt: time.Now(),
		}
		m.instances[token] = inst
	}
	inst.ClientID = clientID
	inst.Attached = true
	return nil
}

// DetachClient clears attachment records for a disconnected client.
func (m *Manager) DetachClient(clientID id.ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range m.instances {
		if inst.ClientID == clientID {
			inst.ClientID = ""
			inst.Attached = false
		}
	}
}

// Count reports registered instances.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}
