package service

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/hbollon/go-edlib"
	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/helpers"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

type EventService struct {
	eventRepository       EventRepository
	userRepository        UserRepository
	participantRepository ParticipantRepository
	maxInQuery            int
	now                   func() time.Time
}

func NewEventService(eventRepository EventRepository, userRepository UserRepository, participantRepository ParticipantRepository, maxInQuery int) *EventService {
	if maxInQuery <= 0 {
		maxInQuery = helpers.MaxInQueryIDs
	}
	return &EventService{
		eventRepository:       eventRepository,
		userRepository:        userRepository,
		participantRepository: participantRepository,
		maxInQuery:            maxInQuery,
		now:                   time.Now,
	}
}

type CreateEventInput struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description" binding:"required"`
	Location    string    `json:"location" binding:"required"`
	Time        time.Time `json:"time" binding:"required"`
	ImageURL    string    `json:"imageUrl" binding:"required"`
}

func (s *EventService) FindAll(ctx context.Context) ([]*entity.Event, error) {
	return s.eventRepository.FindAll(ctx)
}

func (s *EventService) FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.Event, error) {
	if ID.IsZero() {
		return nil, ErrInvalidID
	}
	return s.eventRepository.FindOneByID(ctx, ID)
}

// FindManyByIDs looks the events up in batches the store accepts and merges the results
// ordered by time. Ids without an event are skipped.
func (s *EventService) FindManyByIDs(ctx context.Context, IDs []bson.ObjectID) ([]*entity.Event, error) {
	chunks := helpers.Chunk(helpers.Dedupe(IDs), s.maxInQuery)
	results := make([][]*entity.Event, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	for i := range chunks {
		g.Go(func() error {
			retrier := retry.NewRetrier(3, 50*time.Millisecond, 500*time.Millisecond)
			return retrier.Run(func() error {
				events, err := s.eventRepository.FindManyByIDs(ctx, chunks[i])
				if err != nil {
					return err
				}
				results[i] = events
				return nil
			})
		})
	}
	err := g.Wait()
	if err != nil {
		return nil, err
	}

	var events []*entity.Event
	for _, r := range results {
		events = append(events, r...)
	}
	slices.SortFunc(events, func(a, b *entity.Event) int {
		if c := a.TimeUTC.Compare(b.TimeUTC); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return events, nil
}

func (s *EventService) FavoriteEvents(ctx context.Context, userID bson.ObjectID) ([]*entity.Event, error) {
	return s.relatedEvents(ctx, userID, entity.RelationFavorite)
}

func (s *EventService) ParticipationEvents(ctx context.Context, userID bson.ObjectID) ([]*entity.Event, error) {
	return s.relatedEvents(ctx, userID, entity.RelationParticipation)
}

func (s *EventService) relatedEvents(ctx context.Context, userID bson.ObjectID, relation entity.Relation) ([]*entity.Event, error) {
	user, err := s.userRepository.FindOneByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.FindManyByIDs(ctx, user.EventIDs(relation))
}

// Create stores a new event on behalf of an admin. The creator does not become a participant.
func (s *EventService) Create(ctx context.Context, identity *entity.Identity, input CreateEventInput) (*entity.Event, error) {
	if !identity.IsAdmin() {
		return nil, ErrForbidden
	}

	err := helpers.ValidateRequired(input.Title, input.Description, input.Location, input.ImageURL)
	if err != nil {
		return nil, err
	}
	if input.Time.IsZero() {
		return nil, helpers.ErrEmptyField
	}
	err = helpers.ValidateImageURL(input.ImageURL)
	if err != nil {
		return nil, err
	}

	return s.eventRepository.UpdateOne(ctx, entity.Event{
		ID:          bson.NewObjectID(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		TimeUTC:     input.Time.UTC(),
		ImageURL:    strings.TrimSpace(input.ImageURL),
		CreatorID:   identity.UserID,
		CreatedAt:   s.now().UTC(),
	})
}

// Participants returns the event's roster with every participant's email.
func (s *EventService) Participants(ctx context.Context, eventID bson.ObjectID) ([]*entity.Participant, error) {
	if eventID.IsZero() {
		return nil, ErrInvalidID
	}

	_, err := s.eventRepository.FindOneByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	participants, err := s.participantRepository.FindManyByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]bson.ObjectID, 0, len(participants))
	for _, p := range participants {
		userIDs = append(userIDs, p.Key.UserID)
	}

	chunks := helpers.Chunk(helpers.Dedupe(userIDs), s.maxInQuery)
	results := make([][]*entity.User, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i := range chunks {
		g.Go(func() error {
			users, err := s.userRepository.FindManyByIDs(gctx, chunks[i])
			results[i] = users
			return err
		})
	}
	err = g.Wait()
	if err != nil {
		return nil, err
	}

	emails := map[bson.ObjectID]string{}
	for _, users := range results {
		for _, u := range users {
			emails[u.ID] = u.Email
		}
	}
	for _, p := range participants {
		p.Email = helpers.UnknownUser
		if email, ok := emails[p.Key.UserID]; ok && email != "" {
			p.Email = email
		}
	}
	return participants, nil
}

// Search matches events whose title contains the query or is close to it.
func (s *EventService) Search(ctx context.Context, query string) ([]*entity.Event, error) {
	events, err := s.eventRepository.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	query = helpers.CleanUpQuery(query)
	if query == "" {
		return events, nil
	}

	var found []*entity.Event
	for _, event := range events {
		title := helpers.CleanUpQuery(event.Title)
		if strings.Contains(title, query) {
			found = append(found, event)
			continue
		}
		similarity, err := edlib.StringsSimilarity(title, query, edlib.Levenshtein)
		if err == nil && similarity >= helpers.SearchSimilarity {
			found = append(found, event)
		}
	}
	return found, nil
}
