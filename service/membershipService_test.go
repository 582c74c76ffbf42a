package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func newMembershipService(f *fixture, mode ParticipationMode) *MembershipService {
	return NewMembershipService(f.users, f.events, f.participants, f.store.Transactor(), mode)
}

func TestToggleFavorite_RoundTrip(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com", entity.RoleUser)
	evt1 := f.event(t, "evt1", time.Now())
	s := newMembershipService(f, ParticipationDualWrite)
	ctx := context.Background()

	favorite, err := s.ToggleFavorite(ctx, a.ID, evt1.ID)
	require.NoError(t, err)
	assert.True(t, favorite)
	assert.Equal(t, []bson.ObjectID{evt1.ID}, f.reload(t, a.ID).Favorites)

	favorite, err = s.ToggleFavorite(ctx, a.ID, evt1.ID)
	require.NoError(t, err)
	assert.False(t, favorite)
	assert.Empty(t, f.reload(t, a.ID).Favorites)
}

func TestSetFavorite_Idempotent(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com", entity.RoleUser)
	evt := f.event(t, "evt", time.Now())
	s := newMembershipService(f, ParticipationDualWrite)
	ctx := context.Background()

	require.NoError(t, s.SetFavorite(ctx, a.ID, evt.ID, true))
	require.NoError(t, s.SetFavorite(ctx, a.ID, evt.ID, true))
	assert.Equal(t, []bson.ObjectID{evt.ID}, f.reload(t, a.ID).Favorites)

	require.NoError(t, s.SetFavorite(ctx, a.ID, evt.ID, false))
	require.NoError(t, s.SetFavorite(ctx, a.ID, evt.ID, false))
	assert.Empty(t, f.reload(t, a.ID).Favorites)
}

func TestToggleFavorite_Errors(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com", entity.RoleUser)
	s := newMembershipService(f, ParticipationDualWrite)
	ctx := context.Background()

	_, err := s.ToggleFavorite(ctx, a.ID, bson.NewObjectID())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.ToggleFavorite(ctx, bson.ObjectID{}, bson.NewObjectID())
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.Empty(t, f.reload(t, a.ID).Favorites)
}

func TestToggleFavorite_WriteFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com", entity.RoleUser)
	evt := f.event(t, "evt", time.Now())
	boom := errors.New("permission denied")
	s := NewMembershipService(failingUsers{UserRepository: f.users, err: boom}, f.events, f.participants, f.store.Transactor(), ParticipationDualWrite)

	favorite, err := s.ToggleFavorite(context.Background(), a.ID, evt.ID)
	assert.ErrorIs(t, err, boom)
	assert.False(t, favorite)
}

func TestToggleParticipation_JoinAndLeave(t *testing.T) {
	for _, mode := range []ParticipationMode{ParticipationDualWrite, ParticipationTransaction} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t)
			b := f.user(t, "b@example.com", entity.RoleUser)
			evt2 := f.event(t, "evt2", time.Now())
			s := newMembershipService(f, mode)
			ctx := context.Background()

			joined, err := s.ToggleParticipation(ctx, b.ID, evt2.ID)
			require.NoError(t, err)
			assert.True(t, joined)

			event, err := f.events.FindOneByID(ctx, evt2.ID)
			require.NoError(t, err)
			assert.True(t, event.HasParticipant(b.ID))
			assert.True(t, f.reload(t, b.ID).IsParticipating(evt2.ID))
			assert.False(t, event.Participants[0].JoinedAt.IsZero())

			joined, err = s.ToggleParticipation(ctx, b.ID, evt2.ID)
			require.NoError(t, err)
			assert.False(t, joined)

			event, err = f.events.FindOneByID(ctx, evt2.ID)
			require.NoError(t, err)
			assert.False(t, event.HasParticipant(b.ID))
			assert.False(t, f.reload(t, b.ID).IsParticipating(evt2.ID))
		})
	}
}

func TestToggleParticipation_PartialFailureIsReported(t *testing.T) {
	f := newFixture(t)
	b := f.user(t, "b@example.com", entity.RoleUser)
	evt := f.event(t, "evt", time.Now())
	boom := errors.New("unavailable")
	s := NewMembershipService(f.users, f.events, failingParticipants{ParticipantRepository: f.participants, err: boom}, f.store.Transactor(), ParticipationDualWrite)
	ctx := context.Background()

	joined, err := s.ToggleParticipation(ctx, b.ID, evt.ID)
	require.Error(t, err)
	assert.False(t, joined)
	assert.ErrorIs(t, err, boom)

	var perr *ParticipationError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Partial())
	assert.True(t, perr.Join)
	assert.NoError(t, perr.UserErr)

	// The user-side write went through and is not compensated.
	assert.True(t, f.reload(t, b.ID).IsParticipating(evt.ID))
	event, err := f.events.FindOneByID(ctx, evt.ID)
	require.NoError(t, err)
	assert.False(t, event.HasParticipant(b.ID))
}

func TestToggleParticipation_BothSidesFail(t *testing.T) {
	f := newFixture(t)
	b := f.user(t, "b@example.com", entity.RoleUser)
	evt := f.event(t, "evt", time.Now())
	boom := errors.New("offline")
	s := NewMembershipService(failingUsers{UserRepository: f.users, err: boom}, f.events, failingParticipants{ParticipantRepository: f.participants, err: boom}, f.store.Transactor(), ParticipationDualWrite)

	_, err := s.ToggleParticipation(context.Background(), b.ID, evt.ID)

	var perr *ParticipationError
	require.ErrorAs(t, err, &perr)
	assert.False(t, perr.Partial())
	assert.Len(t, perr.Unwrap(), 2)
}

func TestToggleParticipation_TransactionRollsBack(t *testing.T) {
	f := newFixture(t)
	b := f.user(t, "b@example.com", entity.RoleUser)
	evt := f.event(t, "evt", time.Now())
	boom := errors.New("unavailable")
	s := NewMembershipService(f.users, f.events, failingParticipants{ParticipantRepository: f.participants, err: boom}, f.store.Transactor(), ParticipationTransaction)
	ctx := context.Background()

	_, err := s.ToggleParticipation(ctx, b.ID, evt.ID)
	assert.ErrorIs(t, err, boom)

	var perr *ParticipationError
	assert.False(t, errors.As(err, &perr))
	assert.False(t, f.reload(t, b.ID).IsParticipating(evt.ID))
}

func TestLeave_DeletedEvent(t *testing.T) {
	f := newFixture(t)
	b := f.user(t, "b@example.com", entity.RoleUser)
	evt := f.event(t, "evt", time.Now())
	s := newMembershipService(f, ParticipationDualWrite)
	ctx := context.Background()

	require.NoError(t, s.Join(ctx, b.ID, evt.ID))
	require.NoError(t, f.events.DeleteOneByID(ctx, evt.ID))

	assert.ErrorIs(t, s.Join(ctx, b.ID, evt.ID), repository.ErrNotFound)
	require.NoError(t, s.Leave(ctx, b.ID, evt.ID))
	assert.False(t, f.reload(t, b.ID).IsParticipating(evt.ID))
}
