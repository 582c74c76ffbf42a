package repository

import (
	"context"

	"github.com/joeyave/event-buddy/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type EventRepository struct {
	mongoClient *mongo.Client
	database    string
}

func NewEventRepository(mongoClient *mongo.Client, database string) *EventRepository {
	return &EventRepository{
		mongoClient: mongoClient,
		database:    database,
	}
}

func (r *EventRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.database).Collection(EventsCollection)
}

func (r *EventRepository) FindAll(ctx context.Context) ([]*entity.Event, error) {
	return r.find(ctx,
		bson.M{},
		bson.M{
			"$sort": bson.D{
				{Key: "time", Value: 1},
				{Key: "_id", Value: 1},
			},
		},
	)
}

// FindManyByIDs issues one "_id in list" query. Callers keep the list within the
// store's batch limit.
func (r *EventRepository) FindManyByIDs(ctx context.Context, IDs []bson.ObjectID) ([]*entity.Event, error) {
	if len(IDs) == 0 {
		return []*entity.Event{}, nil
	}
	return r.find(ctx,
		bson.M{
			"_id": bson.M{
				"$in": IDs,
			},
		},
		bson.M{
			"$sort": bson.M{
				"time": 1,
			},
		},
	)
}

func (r *EventRepository) FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.Event, error) {
	events, err := r.find(ctx, bson.M{"_id": ID})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}

	return events[0], nil
}

func (r *EventRepository) find(ctx context.Context, m bson.M, opts ...bson.M) ([]*entity.Event, error) {
	pipeline := bson.A{
		bson.M{
			"$match": m,
		},
		bson.M{
			"$lookup": bson.M{
				"from": ParticipantsCollection,
				"let":  bson.M{"eventId": "$_id"},
				"pipeline": bson.A{
					bson.M{
						"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id.eventId", "$$eventId"}}},
					},
					bson.M{
						"$sort": bson.M{
							"joinedAt": 1,
						},
					},
				},
				"as": "participants",
			},
		},
	}

	for _, o := range opts {
		pipeline = append(pipeline, o)
	}

	cur, err := r.collection().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var events []*entity.Event
	err = cur.All(ctx, &events)
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (r *EventRepository) UpdateOne(ctx context.Context, event entity.Event) (*entity.Event, error) {
	if event.ID.IsZero() {
		event.ID = bson.NewObjectID()
	}

	filter := bson.M{"_id": event.ID}

	event.Participants = nil
	update := bson.M{
		"$set": event,
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(true)

	result := r.collection().FindOneAndUpdate(ctx, filter, update, opts)
	if result.Err() != nil {
		return nil, mapError(result.Err())
	}

	var newEvent *entity.Event
	err := result.Decode(&newEvent)
	if err != nil {
		return nil, err
	}

	return r.FindOneByID(ctx, newEvent.ID)
}

// DeleteOneByID removes the event and its participant records. Users keep dangling
// ids in their lists; reads skip events that no longer exist.
func (r *EventRepository) DeleteOneByID(ctx context.Context, ID bson.ObjectID) error {
	_, err := r.collection().DeleteOne(ctx, bson.M{"_id": ID})
	if err != nil {
		return mapError(err)
	}

	_, err = r.mongoClient.Database(r.database).Collection(ParticipantsCollection).
		DeleteMany(ctx, bson.M{"_id.eventId": ID})
	return mapError(err)
}
