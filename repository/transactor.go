package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Transactor runs a function inside a multi-document transaction. Repository calls made
// with the ctx handed to fn take part in the transaction.
type Transactor struct {
	mongoClient *mongo.Client
}

func NewTransactor(mongoClient *mongo.Client) *Transactor {
	return &Transactor{mongoClient: mongoClient}
}

func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.mongoClient.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}
