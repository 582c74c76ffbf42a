package client

import (
	"context"
	"errors"
	"testing"

	"github.com/joeyave/event-buddy/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeWriter struct {
	err    error
	during func()
	sent   []bool
}

func (w *fakeWriter) SetFavorite(ctx context.Context, eventID bson.ObjectID, favorite bool) error {
	return w.send(favorite)
}

func (w *fakeWriter) SetParticipation(ctx context.Context, eventID bson.ObjectID, participating bool) error {
	return w.send(participating)
}

func (w *fakeWriter) send(v bool) error {
	w.sent = append(w.sent, v)
	if w.during != nil {
		w.during()
	}
	return w.err
}

func TestMembershipView_OptimisticToggle(t *testing.T) {
	w := &fakeWriter{}
	v := NewMembershipView(w)
	evt := bson.NewObjectID()
	ctx := context.Background()

	w.during = func() { assert.True(t, v.IsFavorite(evt)) }
	favorite, err := v.ToggleFavorite(ctx, evt)
	require.NoError(t, err)
	assert.True(t, favorite)

	w.during = nil
	favorite, err = v.ToggleFavorite(ctx, evt)
	require.NoError(t, err)
	assert.False(t, favorite)
	assert.Equal(t, []bool{true, false}, w.sent)
}

func TestMembershipView_RollsBackFailedWrite(t *testing.T) {
	boom := errors.New("offline")
	w := &fakeWriter{err: boom}
	v := NewMembershipView(w)
	evt := bson.NewObjectID()
	other := bson.NewObjectID()
	v.ApplySnapshot(&entity.User{Participations: []bson.ObjectID{other}})

	participating, err := v.ToggleParticipation(context.Background(), evt)
	assert.ErrorIs(t, err, boom)
	assert.False(t, participating)
	assert.False(t, v.IsParticipating(evt))
	assert.True(t, v.IsParticipating(other))
}

func TestMembershipView_NewerSnapshotWins(t *testing.T) {
	boom := errors.New("timeout")
	w := &fakeWriter{err: boom}
	v := NewMembershipView(w)
	evt := bson.NewObjectID()

	// The server state arrives while the write is in flight and already contains the event.
	w.during = func() {
		v.ApplySnapshot(&entity.User{Favorites: []bson.ObjectID{evt}})
	}

	favorite, err := v.ToggleFavorite(context.Background(), evt)
	assert.ErrorIs(t, err, boom)
	assert.True(t, favorite)
	assert.True(t, v.IsFavorite(evt))
}

func TestMembershipView_SnapshotReplacesState(t *testing.T) {
	v := NewMembershipView(&fakeWriter{})
	a, b := bson.NewObjectID(), bson.NewObjectID()

	v.ApplySnapshot(&entity.User{Favorites: []bson.ObjectID{a}, Participations: []bson.ObjectID{b}})
	assert.True(t, v.IsFavorite(a))
	assert.True(t, v.IsParticipating(b))

	v.ApplySnapshot(&entity.User{})
	assert.False(t, v.IsFavorite(a))
	assert.False(t, v.IsParticipating(b))
}
