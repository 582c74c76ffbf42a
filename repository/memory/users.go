package memory

import (
	"context"

	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u = copyUser(u)
	return &u, nil
}

func (r *UserRepository) FindOneByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			u = copyUser(u)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) FindManyByIDs(ctx context.Context, IDs []bson.ObjectID) ([]*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(IDs) > r.s.maxInQuery {
		return nil, repository.ErrTooManyIDs
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := []*entity.User{}
	for _, id := range IDs {
		if u, ok := r.s.users[id]; ok {
			u = copyUser(u)
			users = append(users, &u)
		}
	}
	return users, nil
}

func (r *UserRepository) InsertOne(ctx context.Context, user entity.User) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok {
		return nil, repository.ErrDuplicate
	}
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return nil, repository.ErrDuplicate
		}
	}
	r.s.users[user.ID] = copyUser(user)
	r.s.publish(entity.UserTarget(user.ID))

	user = copyUser(user)
	return &user, nil
}

func (r *UserRepository) AddEventID(ctx context.Context, userID bson.ObjectID, relation entity.Relation, eventID bson.ObjectID) error {
	return r.update(ctx, userID, func(u *entity.User) {
		switch relation {
		case entity.RelationFavorite:
			if !slices.Contains(u.Favorites, eventID) {
				u.Favorites = append(u.Favorites, eventID)
			}
		case entity.RelationParticipation:
			if !slices.Contains(u.Participations, eventID) {
				u.Participations = append(u.Participations, eventID)
			}
		}
	})
}

func (r *UserRepository) PullEventID(ctx context.Context, userID bson.ObjectID, relation entity.Relation, eventID bson.ObjectID) error {
	return r.update(ctx, userID, func(u *entity.User) {
		pull := func(id bson.ObjectID) bool { return id == eventID }
		switch relation {
		case entity.RelationFavorite:
			u.Favorites = slices.DeleteFunc(u.Favorites, pull)
		case entity.RelationParticipation:
			u.Participations = slices.DeleteFunc(u.Participations, pull)
		}
	})
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID bson.ObjectID, hash string) error {
	return r.update(ctx, userID, func(u *entity.User) {
		u.PasswordHash = hash
	})
}

// UpdateRole is an operator action; no API flow changes a role.
func (r *UserRepository) UpdateRole(ctx context.Context, userID bson.ObjectID, role entity.Role) error {
	return r.update(ctx, userID, func(u *entity.User) {
		u.RoleName = role.String()
	})
}

func (r *UserRepository) update(ctx context.Context, userID bson.ObjectID, fn func(u *entity.User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u = copyUser(u)
	fn(&u)
	r.s.users[userID] = u
	r.s.publish(entity.UserTarget(userID))
	return nil
}
