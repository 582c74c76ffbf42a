package repository

import (
	"context"
	"fmt"

	"github.com/joeyave/event-buddy/entity"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Watcher turns MongoDB change streams into change notifications. Change streams need a
// replica set or a sharded cluster.
type Watcher struct {
	mongoClient *mongo.Client
	database    string
}

func NewWatcher(mongoClient *mongo.Client, database string) *Watcher {
	return &Watcher{
		mongoClient: mongoClient,
		database:    database,
	}
}

func (w *Watcher) Watch(ctx context.Context, target entity.WatchTarget) (<-chan entity.Change, error) {
	collection, match, err := watchQuery(target)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{}
	if match != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	stream, err := w.mongoClient.Database(w.database).Collection(collection).Watch(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	changes := make(chan entity.Change, 1)
	go func() {
		defer close(changes)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			// Pending notification already queued: snapshots are full state, so one is enough.
			select {
			case changes <- entity.Change{}:
			default:
			}
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("target", target.String()).Msg("change stream failed")
			select {
			case changes <- entity.Change{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return changes, nil
}

func watchQuery(target entity.WatchTarget) (string, bson.M, error) {
	switch target.Kind {
	case entity.WatchEvents:
		return EventsCollection, nil, nil
	case entity.WatchEvent:
		return EventsCollection, bson.M{"documentKey._id": target.ID}, nil
	case entity.WatchParticipants:
		return ParticipantsCollection, bson.M{"documentKey._id.eventId": target.ID}, nil
	case entity.WatchUser:
		return UsersCollection, bson.M{"documentKey._id": target.ID}, nil
	}
	return "", nil, fmt.Errorf("unknown watch target %d", target.Kind)
}
