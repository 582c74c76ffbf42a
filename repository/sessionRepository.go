package repository

import (
	"context"
	"time"

	"github.com/joeyave/event-buddy/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type SessionRepository struct {
	mongoClient *mongo.Client
	database    string
}

func NewSessionRepository(mongoClient *mongo.Client, database string) *SessionRepository {
	return &SessionRepository{
		mongoClient: mongoClient,
		database:    database,
	}
}

func (r *SessionRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.database).Collection(SessionsCollection)
}

func (r *SessionRepository) InsertOne(ctx context.Context, session entity.Session) error {
	_, err := r.collection().InsertOne(ctx, session)
	return mapError(err)
}

func (r *SessionRepository) FindOneByID(ctx context.Context, ID string) (*entity.Session, error) {
	result := r.collection().FindOne(ctx, bson.M{"_id": ID})
	if result.Err() != nil {
		return nil, mapError(result.Err())
	}

	var session *entity.Session
	err := result.Decode(&session)
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *SessionRepository) UpdateAuthenticatedAt(ctx context.Context, ID string, at time.Time) error {
	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": ID}, bson.M{"$set": bson.M{"authenticatedAt": at}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SessionRepository) DeleteOne(ctx context.Context, ID string) error {
	_, err := r.collection().DeleteOne(ctx, bson.M{"_id": ID})
	return err
}
