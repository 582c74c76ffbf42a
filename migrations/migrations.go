package migrations

import (
	"context"
	"time"

	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/repository"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(repository.UsersCollection).Indexes().CreateOne(ctx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
	)
	if err != nil {
		return err
	}

	_, err = db.Collection(repository.EventsCollection).Indexes().CreateOne(ctx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "time", Value: 1}},
			Options: options.Index().SetName("time"),
		},
	)
	if err != nil {
		return err
	}

	_, err = db.Collection(repository.ParticipantsCollection).Indexes().CreateOne(ctx,
		mongo.IndexModel{
			Keys: bson.D{
				{Key: "_id.eventId", Value: 1},
				{Key: "joinedAt", Value: 1},
			},
			Options: options.Index().SetName("event_joined"),
		},
	)
	if err != nil {
		return err
	}

	_, err = db.Collection(repository.SessionsCollection).Indexes().CreateOne(ctx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("user"),
		},
	)
	return err
}

type legacyEvent struct {
	ID           bson.ObjectID   `bson:"_id"`
	Participants []bson.ObjectID `bson:"participants"`
}

// MigrateParticipantArrays moves participant id arrays stored on event documents into the
// participants collection and the users' participation lists, then drops the array.
func MigrateParticipantArrays(ctx context.Context, db *mongo.Database) (int, error) {
	events := db.Collection(repository.EventsCollection)
	participants := db.Collection(repository.ParticipantsCollection)
	users := db.Collection(repository.UsersCollection)

	// 1. Fetch events that still carry the array.
	cursor, err := events.Find(ctx, bson.M{"participants": bson.M{"$type": "array"}})
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	migrated := 0
	for cursor.Next(ctx) {
		var event legacyEvent
		if err := cursor.Decode(&event); err != nil {
			log.Warn().Err(err).Msg("skipping undecodable event")
			continue
		}

		// 2. Write both sides of the relation for every listed user.
		for _, userID := range event.Participants {
			key := entity.ParticipantKey{EventID: event.ID, UserID: userID}
			_, err := participants.UpdateOne(ctx,
				bson.M{"_id": key},
				bson.M{"$setOnInsert": bson.M{"joinedAt": time.Now().UTC()}},
				options.UpdateOne().SetUpsert(true),
			)
			if err != nil {
				return migrated, err
			}

			_, err = users.UpdateOne(ctx,
				bson.M{"_id": userID},
				bson.M{"$addToSet": bson.M{"participations": event.ID}},
			)
			if err != nil {
				return migrated, err
			}
		}

		// 3. Drop the array.
		_, err := events.UpdateOne(ctx, bson.M{"_id": event.ID}, bson.M{"$unset": bson.M{"participants": ""}})
		if err != nil {
			return migrated, err
		}
		migrated++
	}

	return migrated, cursor.Err()
}
