package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ParticipantKey is the _id of a participant record: one record per (event, user).
type ParticipantKey struct {
	EventID bson.ObjectID `bson:"eventId" json:"eventId"`
	UserID  bson.ObjectID `bson:"userId" json:"userId"`
}

type Participant struct {
	Key      ParticipantKey `bson:"_id" json:"key"`
	JoinedAt time.Time      `bson:"joinedAt,omitempty" json:"joinedAt"`

	// Filled in by EventService.Participants.
	Email string `bson:"-" json:"email,omitempty"`
}

// Relation names one of the two user <-> event relations.
type Relation string

const (
	RelationFavorite      Relation = "favorite"
	RelationParticipation Relation = "participation"
)

// Field is the user document field holding the relation's event ids.
func (r Relation) Field() string {
	switch r {
	case RelationFavorite:
		return "favorites"
	case RelationParticipation:
		return "participations"
	}
	return ""
}
