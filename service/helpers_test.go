package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/repository/memory"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type fixture struct {
	store        *memory.Store
	users        *memory.UserRepository
	events       *memory.EventRepository
	participants *memory.ParticipantRepository
	sessions     *memory.SessionRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New(10)
	return &fixture{
		store:        store,
		users:        store.Users(),
		events:       store.Events(),
		participants: store.Participants(),
		sessions:     store.Sessions(),
	}
}

func (f *fixture) user(t *testing.T, email string, role entity.Role) *entity.User {
	t.Helper()
	u, err := f.users.InsertOne(context.Background(), entity.User{
		ID:       bson.NewObjectID(),
		Email:    email,
		RoleName: role.String(),
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) event(t *testing.T, title string, at time.Time) *entity.Event {
	t.Helper()
	e, err := f.events.UpdateOne(context.Background(), entity.Event{
		ID:      bson.NewObjectID(),
		Title:   title,
		TimeUTC: at,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) reload(t *testing.T, id bson.ObjectID) *entity.User {
	t.Helper()
	u, err := f.users.FindOneByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// failingParticipants fails every participant write with err.
type failingParticipants struct {
	ParticipantRepository
	err error
}

func (r failingParticipants) UpsertOne(ctx context.Context, key entity.ParticipantKey) error {
	return r.err
}

func (r failingParticipants) DeleteOne(ctx context.Context, key entity.ParticipantKey) error {
	return r.err
}

// failingUsers fails the relation writes with err.
type failingUsers struct {
	UserRepository
	err error
}

func (r failingUsers) AddEventID(ctx context.Context, userID bson.ObjectID, relation entity.Relation, eventID bson.ObjectID) error {
	return r.err
}

func (r failingUsers) PullEventID(ctx context.Context, userID bson.ObjectID, relation entity.Relation, eventID bson.ObjectID) error {
	return r.err
}

// countingEvents counts the batched id lookups that reach the store.
type countingEvents struct {
	EventRepository
	calls atomic.Int64
}

func (r *countingEvents) FindManyByIDs(ctx context.Context, IDs []bson.ObjectID) ([]*entity.Event, error) {
	r.calls.Add(1)
	return r.EventRepository.FindManyByIDs(ctx, IDs)
}
