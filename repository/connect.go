package repository

import (
	"context"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Connect opens the client and waits until the primary answers a ping.
func Connect(uri string, timeout time.Duration) (*mongo.Client, error) {
	mongoClient, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	retrier := retry.NewRetrier(5, 200*time.Millisecond, 2*time.Second)
	err = retrier.Run(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := mongoClient.Ping(ctx, readpref.Primary())
		if err != nil {
			log.Warn().Err(err).Msg("mongo ping failed")
		}
		return err
	})
	if err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, err
	}

	return mongoClient, nil
}
