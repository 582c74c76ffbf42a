package memory

import (
	"context"

	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type EventRepository struct {
	s *Store
}

func (r *EventRepository) FindAll(ctx context.Context) ([]*entity.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	events := make([]*entity.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		events = append(events, r.withParticipants(e))
	}
	sortEvents(events)
	return events, nil
}

func (r *EventRepository) FindManyByIDs(ctx context.Context, IDs []bson.ObjectID) ([]*entity.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(IDs) > r.s.maxInQuery {
		return nil, repository.ErrTooManyIDs
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	events := []*entity.Event{}
	seen := map[bson.ObjectID]bool{}
	for _, id := range IDs {
		e, ok := r.s.events[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		events = append(events, r.withParticipants(e))
	}
	sortEvents(events)
	return events, nil
}

func (r *EventRepository) FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.withParticipants(e), nil
}

func (r *EventRepository) UpdateOne(ctx context.Context, event entity.Event) (*entity.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if event.ID.IsZero() {
		event.ID = bson.NewObjectID()
	}
	event.Participants = nil

	r.s.mu.Lock()
	r.s.events[event.ID] = event
	r.s.publish(entity.EventsTarget(), entity.EventTarget(event.ID))
	r.s.mu.Unlock()

	return r.FindOneByID(ctx, event.ID)
}

// DeleteOneByID removes the event and its participant records.
func (r *EventRepository) DeleteOneByID(ctx context.Context, ID bson.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.events, ID)
	for k := range r.s.participants {
		if k.EventID == ID {
			delete(r.s.participants, k)
		}
	}
	r.s.publish(entity.EventsTarget(), entity.EventTarget(ID), entity.ParticipantsTarget(ID))
	return nil
}

func (r *EventRepository) withParticipants(e entity.Event) *entity.Event {
	e.Participants = r.s.participantsOf(e.ID)
	return &e
}
