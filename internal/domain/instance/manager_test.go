package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadawais/wordpress-playground/internal/scope"
	"github.com/ahmadawais/wordpress-playground/internal/shared/id"
)

func TestCreateMintsEmbeddableTokens(t *testing.T) {
	m := NewManager()

	a := m.Create("site-a")
	b := m.Create("site-b")

	assert.NotEqual(t, a.Scope, b.Scope)
	assert.True(t, scope.ValidToken(a.Scope), "minted token must fit the embedding alphabet")
	assert.True(t, scope.ValidToken(b.Scope))
	assert.Equal(t, 2, m.Count())
}

func TestGetAndList(t *testing.T) {
	m := NewManager()

	created := m.Create("site")
	got, ok := m.Get(created.Scope)
	require.True(t, ok)
	assert.Equal(t, "site", got.Name)

	_, ok = m.Get("missing")
	assert.False(t, ok)

	assert.Len(t, m.List(), 1)
}

func TestRemove(t *testing.T) {
	m := NewManager()

	inst := m.Create("site")
	require.NoError(t, m.Remove(inst.Scope))
	assert.Equal(t, 0, m.Count())

	assert.ErrorIs(t, m.Remove(inst.Scope), ErrNotFound)
}

func TestAttachDetach(t *testing.T) {
	m := NewManager()
	clientID := id.NewClientID()

	inst := m.Create("site")
	require.NoError(t, m.Attach(inst.Scope, clientID))

	got, _ := m.Get(inst.Scope)
	assert.True(t, got.Attached)
	assert.Equal(t, clientID, got.ClientID)

	m.DetachClient(clientID)
	got, _ = m.Get(inst.Scope)
	assert.False(t, got.Attached)
	assert.Empty(t, got.ClientID)
}

func TestAttachRegistersUnknownScopes(t *testing.T) {
	m := NewManager()

	require.NoError(t, m.Attach("self-minted", id.NewClientID()))
	_, ok := m.Get("self-minted")
	assert.True(t, ok)
}

func TestAttachRejectsInvalidTokens(t *testing.T) {
	m := NewManager()

	assert.ErrorIs(t, m.Attach("", id.NewClientID()), ErrInvalidScope)
	assert.ErrorIs(t, m.Attach("a/b", id.NewClientID()), ErrInvalidScope)
}
