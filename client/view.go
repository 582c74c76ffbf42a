package client

import (
	"context"
	"sync"

	"github.com/joeyave/event-buddy/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MembershipWriter sends a desired membership state to the server.
type MembershipWriter interface {
	SetFavorite(ctx context.Context, eventID bson.ObjectID, favorite bool) error
	SetParticipation(ctx context.Context, eventID bson.ObjectID, participating bool) error
}

// MembershipView is the local copy of a user's favorites and participations. Toggles are
// applied locally before the write is sent. Snapshots from the server replace the whole
// copy, and a failed write is rolled back only if no snapshot arrived in the meantime.
type MembershipView struct {
	writer MembershipWriter

	mu             sync.Mutex
	favorites      map[bson.ObjectID]bool
	participations map[bson.ObjectID]bool
	generation     uint64
}

func NewMembershipView(writer MembershipWriter) *MembershipView {
	return &MembershipView{
		writer:         writer,
		favorites:      map[bson.ObjectID]bool{},
		participations: map[bson.ObjectID]bool{},
	}
}

func (v *MembershipView) ApplySnapshot(user *entity.User) {
	favorites := map[bson.ObjectID]bool{}
	participations := map[bson.ObjectID]bool{}
	if user != nil {
		for _, id := range user.Favorites {
			favorites[id] = true
		}
		for _, id := range user.Participations {
			participations[id] = true
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.favorites = favorites
	v.participations = participations
	v.generation++
}

func (v *MembershipView) IsFavorite(eventID bson.ObjectID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.favorites[eventID]
}

func (v *MembershipView) IsParticipating(eventID bson.ObjectID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.participations[eventID]
}

// ToggleFavorite flips the favorite locally and sends the new state. It returns the state
// the view holds for the event afterwards.
func (v *MembershipView) ToggleFavorite(ctx context.Context, eventID bson.ObjectID) (bool, error) {
	return v.toggle(ctx, eventID, func() map[bson.ObjectID]bool { return v.favorites }, v.writer.SetFavorite)
}

func (v *MembershipView) ToggleParticipation(ctx context.Context, eventID bson.ObjectID) (bool, error) {
	return v.toggle(ctx, eventID, func() map[bson.ObjectID]bool { return v.participations }, v.writer.SetParticipation)
}

func (v *MembershipView) toggle(ctx context.Context, eventID bson.ObjectID, set func() map[bson.ObjectID]bool, send func(context.Context, bson.ObjectID, bool) error) (bool, error) {
	v.mu.Lock()
	prev := set()[eventID]
	next := !prev
	setState(set(), eventID, next)
	generation := v.generation
	v.mu.Unlock()

	err := send(ctx, eventID, next)
	if err == nil {
		return next, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.generation == generation {
		setState(set(), eventID, prev)
	}
	return set()[eventID], err
}

func setState(m map[bson.ObjectID]bool, id bson.ObjectID, on bool) {
	if on {
		m[id] = true
		return
	}
	delete(m, id)
}
