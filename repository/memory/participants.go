package memory

import (
	"context"

	"github.com/joeyave/event-buddy/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type ParticipantRepository struct {
	s *Store
}

func (r *ParticipantRepository) FindManyByEventID(ctx context.Context, eventID bson.ObjectID) ([]*entity.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.participantsOf(eventID), nil
}

func (r *ParticipantRepository) UpsertOne(ctx context.Context, key entity.ParticipantKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.participants[key] = entity.Participant{Key: key, JoinedAt: r.s.now().UTC()}
	r.s.publish(entity.ParticipantsTarget(key.EventID))
	return nil
}

func (r *ParticipantRepository) DeleteOne(ctx context.Context, key entity.ParticipantKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.participants[key]; !ok {
		return nil
	}
	delete(r.s.participants, key)
	r.s.publish(entity.ParticipantsTarget(key.EventID))
	return nil
}
