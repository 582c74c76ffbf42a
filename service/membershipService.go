package service

import (
	"context"
	"fmt"

	"github.com/joeyave/event-buddy/entity"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/sync/errgroup"
)

type ParticipationMode string

const (
	// ParticipationDualWrite issues the user-side and event-side writes concurrently and
	// independently. A failure of one side leaves the other applied.
	ParticipationDualWrite ParticipationMode = "dual-write"
	// ParticipationTransaction applies both writes in one store transaction.
	ParticipationTransaction ParticipationMode = "transaction"
)

// MembershipService flips a user's favorite and participation relations to events.
// It does not look at roles: callers keep admins away from it.
type MembershipService struct {
	userRepository        UserRepository
	eventRepository       EventRepository
	participantRepository ParticipantRepository
	transactor            Transactor
	mode                  ParticipationMode
}

func NewMembershipService(userRepository UserRepository, eventRepository EventRepository, participantRepository ParticipantRepository, transactor Transactor, mode ParticipationMode) *MembershipService {
	if mode == "" {
		mode = ParticipationDualWrite
	}
	return &MembershipService{
		userRepository:        userRepository,
		eventRepository:       eventRepository,
		participantRepository: participantRepository,
		transactor:            transactor,
		mode:                  mode,
	}
}

func (s *MembershipService) Mode() ParticipationMode {
	return s.mode
}

// ToggleFavorite adds the event to the user's favorites or removes it, and returns
// whether the event is a favorite afterwards.
func (s *MembershipService) ToggleFavorite(ctx context.Context, userID, eventID bson.ObjectID) (bool, error) {
	user, err := s.findUser(ctx, userID, eventID)
	if err != nil {
		return false, err
	}

	favorite := !user.IsFavorite(eventID)
	err = s.SetFavorite(ctx, userID, eventID, favorite)
	if err != nil {
		return !favorite, err
	}
	return favorite, nil
}

// SetFavorite writes the desired favorite state. Repeating it is harmless.
func (s *MembershipService) SetFavorite(ctx context.Context, userID, eventID bson.ObjectID, favorite bool) error {
	if userID.IsZero() || eventID.IsZero() {
		return ErrInvalidID
	}

	if !favorite {
		return s.userRepository.PullEventID(ctx, userID, entity.RelationFavorite, eventID)
	}

	_, err := s.eventRepository.FindOneByID(ctx, eventID)
	if err != nil {
		return err
	}
	return s.userRepository.AddEventID(ctx, userID, entity.RelationFavorite, eventID)
}

// ToggleParticipation joins the event if the user's participation list lacks it and
// leaves it otherwise. It returns whether the user participates afterwards.
func (s *MembershipService) ToggleParticipation(ctx context.Context, userID, eventID bson.ObjectID) (bool, error) {
	user, err := s.findUser(ctx, userID, eventID)
	if err != nil {
		return false, err
	}

	if user.IsParticipating(eventID) {
		err = s.Leave(ctx, userID, eventID)
		return err != nil, err
	}
	err = s.Join(ctx, userID, eventID)
	return err == nil, err
}

func (s *MembershipService) Join(ctx context.Context, userID, eventID bson.ObjectID) error {
	if userID.IsZero() || eventID.IsZero() {
		return ErrInvalidID
	}

	_, err := s.eventRepository.FindOneByID(ctx, eventID)
	if err != nil {
		return err
	}
	return s.setParticipation(ctx, userID, eventID, true)
}

// Leave does not require the event to exist, so ids of deleted events can be cleaned up.
func (s *MembershipService) Leave(ctx context.Context, userID, eventID bson.ObjectID) error {
	if userID.IsZero() || eventID.IsZero() {
		return ErrInvalidID
	}
	return s.setParticipation(ctx, userID, eventID, false)
}

func (s *MembershipService) setParticipation(ctx context.Context, userID, eventID bson.ObjectID, join bool) error {
	if s.mode == ParticipationTransaction {
		err := s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
			err := s.writeUserSide(ctx, userID, eventID, join)
			if err != nil {
				return err
			}
			return s.writeEventSide(ctx, userID, eventID, join)
		})
		if err != nil {
			return fmt.Errorf("participation transaction: %w", err)
		}
		return nil
	}

	var userErr, eventErr error

	// Not errgroup.WithContext: a failing side must not cancel the other one.
	var g errgroup.Group
	g.Go(func() error {
		userErr = s.writeUserSide(ctx, userID, eventID, join)
		return userErr
	})
	g.Go(func() error {
		eventErr = s.writeEventSide(ctx, userID, eventID, join)
		return eventErr
	})
	if g.Wait() == nil {
		return nil
	}

	perr := &ParticipationError{Join: join, UserErr: userErr, EventErr: eventErr}
	if perr.Partial() {
		log.Warn().Err(perr).
			Str("userId", userID.Hex()).
			Str("eventId", eventID.Hex()).
			Bool("userWritten", userErr == nil).
			Bool("eventWritten", eventErr == nil).
			Msg("participation copies diverged")
	}
	return perr
}

func (s *MembershipService) writeUserSide(ctx context.Context, userID, eventID bson.ObjectID, join bool) error {
	if join {
		return s.userRepository.AddEventID(ctx, userID, entity.RelationParticipation, eventID)
	}
	return s.userRepository.PullEventID(ctx, userID, entity.RelationParticipation, eventID)
}

func (s *MembershipService) writeEventSide(ctx context.Context, userID, eventID bson.ObjectID, join bool) error {
	key := entity.ParticipantKey{EventID: eventID, UserID: userID}
	if join {
		return s.participantRepository.UpsertOne(ctx, key)
	}
	return s.participantRepository.DeleteOne(ctx, key)
}

func (s *MembershipService) findUser(ctx context.Context, userID, eventID bson.ObjectID) (*entity.User, error) {
	if userID.IsZero() || eventID.IsZero() {
		return nil, ErrInvalidID
	}
	return s.userRepository.FindOneByID(ctx, userID)
}
