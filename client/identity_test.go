package client

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/joeyave/event-buddy/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestIdentityHolder(t *testing.T) {
	h := NewIdentityHolder()
	var seen []*Session

	cancel := h.Subscribe(func(s *Session) { seen = append(seen, s) })
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	session := &Session{Token: "t", Identity: &entity.Identity{UserID: bson.NewObjectID()}}
	h.Set(session)
	assert.Same(t, session, h.Current())

	h.Clear()
	assert.Nil(t, h.Current())
	assert.Equal(t, []*Session{nil, session, nil}, seen)

	cancel()
	cancel()
	h.Set(session)
	assert.Len(t, seen, 3)
}

func TestTokenStore(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "nested", "session.json"))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	h := NewIdentityHolder()
	cancel := store.Persist(h)
	defer cancel()

	session := &Session{
		Token:     "token",
		ExpiresAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Identity:  &entity.Identity{UserID: bson.NewObjectID(), Email: "a@example.com", Role: entity.RoleAdmin},
	}
	h.Set(session)

	loaded, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "token", loaded.Token)
	assert.Equal(t, entity.RoleAdmin, loaded.Identity.Role)
	assert.Equal(t, session.Identity.UserID, loaded.Identity.UserID)

	h.Clear()
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
	assert.NoError(t, store.Clear())
}
