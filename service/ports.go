package service

import (
	"context"
	"time"

	"github.com/joeyave/event-buddy/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// The repository packages (repository for MongoDB, repository/memory for the in-process
// store) satisfy these contracts.

type EventRepository interface {
	FindAll(ctx context.Context) ([]*entity.Event, error)
	FindManyByIDs(ctx context.Context, IDs []bson.ObjectID) ([]*entity.Event, error)
	FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.Event, error)
	UpdateOne(ctx context.Context, event entity.Event) (*entity.Event, error)
}

type UserRepository interface {
	FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.User, error)
	FindOneByEmail(ctx context.Context, email string) (*entity.User, error)
	FindManyByIDs(ctx context.Context, IDs []bson.ObjectID) ([]*entity.User, error)
	InsertOne(ctx context.Context, user entity.User) (*entity.User, error)
	AddEventID(ctx context.Context, userID bson.ObjectID, relation entity.Relation, eventID bson.ObjectID) error
	PullEventID(ctx context.Context, userID bson.ObjectID, relation entity.Relation, eventID bson.ObjectID) error
	UpdatePasswordHash(ctx context.Context, userID bson.ObjectID, hash string) error
}

type ParticipantRepository interface {
	FindManyByEventID(ctx context.Context, eventID bson.ObjectID) ([]*entity.Participant, error)
	UpsertOne(ctx context.Context, key entity.ParticipantKey) error
	DeleteOne(ctx context.Context, key entity.ParticipantKey) error
}

type SessionRepository interface {
	InsertOne(ctx context.Context, session entity.Session) error
	FindOneByID(ctx context.Context, ID string) (*entity.Session, error)
	UpdateAuthenticatedAt(ctx context.Context, ID string, at time.Time) error
	DeleteOne(ctx context.Context, ID string) error
}

type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Watcher interface {
	Watch(ctx context.Context, target entity.WatchTarget) (<-chan entity.Change, error)
}
