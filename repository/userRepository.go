package repository

import (
	"context"

	"github.com/joeyave/event-buddy/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type UserRepository struct {
	mongoClient *mongo.Client
	database    string
}

func NewUserRepository(mongoClient *mongo.Client, database string) *UserRepository {
	return &UserRepository{
		mongoClient: mongoClient,
		database:    database,
	}
}

func (r *UserRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.database).Collection(UsersCollection)
}

func (r *UserRepository) FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"_id": ID})
}

func (r *UserRepository) FindOneByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindManyByIDs(ctx context.Context, IDs []bson.ObjectID) ([]*entity.User, error) {
	if len(IDs) == 0 {
		return []*entity.User{}, nil
	}

	cur, err := r.collection().Find(ctx, bson.M{"_id": bson.M{"$in": IDs}})
	if err != nil {
		return nil, err
	}

	var users []*entity.User
	err = cur.All(ctx, &users)
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UserRepository) findOne(ctx context.Context, m bson.M) (*entity.User, error) {
	result := r.collection().FindOne(ctx, m)
	if result.Err() != nil {
		return nil, mapError(result.Err())
	}

	var user *entity.User
	err := result.Decode(&user)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) InsertOne(ctx context.Context, user entity.User) (*entity.User, error) {
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}

	_, err := r.collection().InsertOne(ctx, user)
	if err != nil {
		return nil, mapError(err)
	}

	return &user, nil
}

// AddEventID is an array-union of eventID into the relation's list.
func (r *UserRepository) AddEventID(ctx context.Context, userID bson.ObjectID, relation entity.Relation, eventID bson.ObjectID) error {
	return r.updateOne(ctx, userID, bson.M{
		"$addToSet": bson.M{
			relation.Field(): eventID,
		},
	})
}

// PullEventID is an array-remove of eventID from the relation's list.
func (r *UserRepository) PullEventID(ctx context.Context, userID bson.ObjectID, relation entity.Relation, eventID bson.ObjectID) error {
	return r.updateOne(ctx, userID, bson.M{
		"$pull": bson.M{
			relation.Field(): eventID,
		},
	})
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID bson.ObjectID, hash string) error {
	return r.updateOne(ctx, userID, bson.M{
		"$set": bson.M{
			"passwordHash": hash,
		},
	})
}

// UpdateRole is an operator action; no API flow changes a role.
func (r *UserRepository) UpdateRole(ctx context.Context, userID bson.ObjectID, role entity.Role) error {
	return r.updateOne(ctx, userID, bson.M{
		"$set": bson.M{
			"role": role.String(),
		},
	})
}

func (r *UserRepository) updateOne(ctx context.Context, userID bson.ObjectID, update bson.M) error {
	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return mapError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
