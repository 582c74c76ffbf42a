package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/joeyave/event-buddy/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type snapshots struct {
	mu   sync.Mutex
	list []any
	errs []error
}

func (s *snapshots) add(id string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, v)
}

func (s *snapshots) fail(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *snapshots) last() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.list) == 0 {
		return nil
	}
	return s.list[len(s.list)-1]
}

func newSubscriptionService(f *fixture) *SubscriptionService {
	events := NewEventService(f.events, f.users, f.participants, 10)
	return NewSubscriptionService(f.store.Watcher(), events, f.users)
}

func TestSubscribe_UserTopicFollowsToggles(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com", entity.RoleUser)
	evt := f.event(t, "evt", time.Now())
	s := newSubscriptionService(f)
	defer s.Close()
	membership := newMembershipService(f, ParticipationDualWrite)
	ctx := context.Background()

	got := &snapshots{}
	id, err := s.Subscribe(ctx, &entity.Identity{UserID: a.ID, Role: entity.RoleUser}, TopicUser, got.add, got.fail)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Eventually(t, func() bool { return got.last() != nil }, time.Second, 5*time.Millisecond)

	_, err = membership.ToggleFavorite(ctx, a.ID, evt.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		u, ok := got.last().(*entity.User)
		return ok && u.IsFavorite(evt.ID)
	}, time.Second, 5*time.Millisecond)

	assert.True(t, s.Unsubscribe(id))
	assert.Equal(t, 0, s.Active())
	require.Eventually(t, func() bool { return f.store.Watcher().ActiveWatches() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSubscribe_EventTopic(t *testing.T) {
	f := newFixture(t)
	b := f.user(t, "b@example.com", entity.RoleUser)
	evt := f.event(t, "evt", time.Now())
	s := newSubscriptionService(f)
	defer s.Close()
	membership := newMembershipService(f, ParticipationDualWrite)
	ctx := context.Background()
	identity := &entity.Identity{UserID: b.ID, Role: entity.RoleUser}

	got := &snapshots{}
	_, err := s.Subscribe(ctx, identity, EventTopic(evt.ID), got.add, got.fail)
	require.NoError(t, err)

	require.NoError(t, membership.Join(ctx, b.ID, evt.ID))
	require.Eventually(t, func() bool {
		snap, ok := got.last().(EventSnapshot)
		return ok && snap.Exists && snap.Event.HasParticipant(b.ID)
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.events.DeleteOneByID(ctx, evt.ID))
	require.Eventually(t, func() bool {
		snap, ok := got.last().(EventSnapshot)
		return ok && !snap.Exists
	}, time.Second, 5*time.Millisecond)

	missing := &snapshots{}
	_, err = s.Subscribe(ctx, identity, EventTopic(bson.NewObjectID()), missing.add, missing.fail)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, ok := missing.last().(EventSnapshot)
		return ok && !snap.Exists
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribe_FavoritesTopic(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com", entity.RoleUser)
	evt := f.event(t, "evt", time.Now())
	s := newSubscriptionService(f)
	defer s.Close()
	membership := newMembershipService(f, ParticipationDualWrite)
	ctx := context.Background()

	got := &snapshots{}
	_, err := s.Subscribe(ctx, &entity.Identity{UserID: a.ID, Role: entity.RoleUser}, TopicFavorites, got.add, got.fail)
	require.NoError(t, err)

	require.NoError(t, membership.SetFavorite(ctx, a.ID, evt.ID, true))
	require.Eventually(t, func() bool {
		events, ok := got.last().([]*entity.Event)
		return ok && len(events) == 1 && events[0].ID == evt.ID
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribe_Rejects(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", entity.RoleAdmin)
	s := newSubscriptionService(f)
	defer s.Close()
	ctx := context.Background()
	identity := &entity.Identity{UserID: admin.ID, Role: entity.RoleAdmin}
	noop := func(string, any) {}

	_, err := s.Subscribe(ctx, identity, TopicFavorites, noop, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = s.Subscribe(ctx, identity, "songs", noop, nil)
	assert.ErrorIs(t, err, ErrUnknownTopic)

	_, err = s.Subscribe(ctx, identity, "event/not-an-id", noop, nil)
	assert.ErrorIs(t, err, ErrUnknownTopic)

	_, err = s.Subscribe(ctx, nil, TopicEvents, noop, nil)
	assert.ErrorIs(t, err, ErrInvalidSession)

	assert.Equal(t, 0, s.Active())
}
