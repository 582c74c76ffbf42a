package repository

import (
	"context"

	"github.com/joeyave/event-buddy/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ParticipantRepository stores the per-event participant records.
type ParticipantRepository struct {
	mongoClient *mongo.Client
	database    string
}

func NewParticipantRepository(mongoClient *mongo.Client, database string) *ParticipantRepository {
	return &ParticipantRepository{
		mongoClient: mongoClient,
		database:    database,
	}
}

func (r *ParticipantRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.database).Collection(ParticipantsCollection)
}

func (r *ParticipantRepository) FindManyByEventID(ctx context.Context, eventID bson.ObjectID) ([]*entity.Participant, error) {
	opts := options.Find().SetSort(bson.M{"joinedAt": 1})

	cur, err := r.collection().Find(ctx, bson.M{"_id.eventId": eventID}, opts)
	if err != nil {
		return nil, err
	}

	var participants []*entity.Participant
	err = cur.All(ctx, &participants)
	if err != nil {
		return nil, err
	}

	return participants, nil
}

// UpsertOne creates or refreshes the participant record; joinedAt is set by the server.
func (r *ParticipantRepository) UpsertOne(ctx context.Context, key entity.ParticipantKey) error {
	update := bson.M{
		"$currentDate": bson.M{
			"joinedAt": true,
		},
	}

	_, err := r.collection().UpdateOne(ctx, bson.M{"_id": key}, update, options.UpdateOne().SetUpsert(true))
	return mapError(err)
}

func (r *ParticipantRepository) DeleteOne(ctx context.Context, key entity.ParticipantKey) error {
	_, err := r.collection().DeleteOne(ctx, bson.M{"_id": key})
	return err
}
