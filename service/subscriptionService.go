package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/repository"
	"github.com/joeyave/event-buddy/subscription"
	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var ErrUnknownTopic = errors.New("unknown topic")

const (
	TopicEvents         = "events"
	TopicUser           = "user"
	TopicFavorites      = "favorites"
	TopicParticipations = "participations"
)

func EventTopic(id bson.ObjectID) string {
	return "event/" + id.Hex()
}

func ParticipantsTopic(id bson.ObjectID) string {
	return "event/" + id.Hex() + "/participants"
}

// EventSnapshot is the payload of an event topic. A deleted event is reported with
// Exists false rather than as an error.
type EventSnapshot struct {
	Exists bool          `json:"exists"`
	Event  *entity.Event `json:"event,omitempty"`
}

// SubscriptionService runs live subscriptions on named topics for authenticated callers.
type SubscriptionService struct {
	watcher        Watcher
	eventService   *EventService
	userRepository UserRepository
	registry       *subscription.Registry
}

func NewSubscriptionService(watcher Watcher, eventService *EventService, userRepository UserRepository) *SubscriptionService {
	return &SubscriptionService{
		watcher:        watcher,
		eventService:   eventService,
		userRepository: userRepository,
		registry:       subscription.NewRegistry(),
	}
}

// Subscribe starts a subscription and returns its id. onSnapshot receives the full state
// of the topic every time it changes. The subscription outlives ctx; end it with Unsubscribe.
func (s *SubscriptionService) Subscribe(ctx context.Context, identity *entity.Identity, topic string, onSnapshot func(id string, data any), onError func(id string, err error)) (string, error) {
	targets, fetch, err := s.resolve(identity, topic)
	if err != nil {
		return "", err
	}

	id := ulid.Make().String()
	sub := subscription.Subscribe(context.WithoutCancel(ctx), s.watchAll(targets), fetch,
		func(data any) { onSnapshot(id, data) },
		func(err error) {
			if onError != nil {
				onError(id, err)
			}
		},
	)
	s.registry.Track(id, sub)
	return id, nil
}

func (s *SubscriptionService) Unsubscribe(id string) bool {
	return s.registry.Cancel(id)
}

// Active is the number of subscriptions currently running.
func (s *SubscriptionService) Active() int {
	return s.registry.Active()
}

func (s *SubscriptionService) Close() {
	s.registry.CancelAll()
}

func (s *SubscriptionService) resolve(identity *entity.Identity, topic string) ([]entity.WatchTarget, subscription.FetchFunc[any], error) {
	if identity == nil {
		return nil, nil, ErrInvalidSession
	}

	switch topic {
	case TopicEvents:
		return []entity.WatchTarget{entity.EventsTarget()}, func(ctx context.Context) (any, error) {
			return s.eventService.FindAll(ctx)
		}, nil
	case TopicUser:
		return []entity.WatchTarget{entity.UserTarget(identity.UserID)}, func(ctx context.Context) (any, error) {
			return s.userRepository.FindOneByID(ctx, identity.UserID)
		}, nil
	case TopicFavorites, TopicParticipations:
		if identity.IsAdmin() {
			return nil, nil, ErrForbidden
		}
		targets := []entity.WatchTarget{entity.UserTarget(identity.UserID), entity.EventsTarget()}
		if topic == TopicFavorites {
			return targets, func(ctx context.Context) (any, error) {
				return s.eventService.FavoriteEvents(ctx, identity.UserID)
			}, nil
		}
		return targets, func(ctx context.Context) (any, error) {
			return s.eventService.ParticipationEvents(ctx, identity.UserID)
		}, nil
	}

	rest, ok := strings.CutPrefix(topic, "event/")
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	hex, participants := strings.CutSuffix(rest, "/participants")
	eventID, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	targets := []entity.WatchTarget{entity.EventTarget(eventID), entity.ParticipantsTarget(eventID)}
	if participants {
		return targets, func(ctx context.Context) (any, error) {
			return s.eventService.Participants(ctx, eventID)
		}, nil
	}
	return targets, func(ctx context.Context) (any, error) {
		event, err := s.eventService.FindOneByID(ctx, eventID)
		if errors.Is(err, repository.ErrNotFound) {
			return EventSnapshot{Exists: false}, nil
		}
		if err != nil {
			return nil, err
		}
		return EventSnapshot{Exists: true, Event: event}, nil
	}, nil
}

// watchAll merges the feeds of several targets into one.
func (s *SubscriptionService) watchAll(targets []entity.WatchTarget) subscription.WatchFunc {
	return func(ctx context.Context) (<-chan entity.Change, error) {
		var feeds []<-chan entity.Change
		for _, target := range targets {
			feed, err := s.watcher.Watch(ctx, target)
			if err != nil {
				return nil, fmt.Errorf("watch %s: %w", target, err)
			}
			feeds = append(feeds, feed)
		}
		if len(feeds) == 1 {
			return feeds[0], nil
		}

		merged := make(chan entity.Change, 1)
		for _, feed := range feeds {
			go func() {
				for change := range feed {
					if change.Err != nil {
						select {
						case merged <- change:
						case <-ctx.Done():
						}
						return
					}
					select {
					case merged <- change:
					default:
					}
				}
				if ctx.Err() == nil {
					select {
					case merged <- entity.Change{Err: subscription.ErrFeedClosed}:
					case <-ctx.Done():
					}
				}
			}()
		}
		return merged, nil
	}
}
