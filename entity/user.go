package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
)

type User struct {
	ID    bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email string        `bson:"email,omitempty" json:"email"`
	// Stored as "admin" | "user"; read through Role().
	RoleName string `bson:"role,omitempty" json:"role"`

	Favorites      []bson.ObjectID `bson:"favorites,omitempty" json:"favorites"`
	Participations []bson.ObjectID `bson:"participations,omitempty" json:"participations"`

	PasswordHash string    `bson:"passwordHash,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"createdAt,omitempty" json:"createdAt"`
}

func (u *User) Role() Role {
	return ParseRole(u.RoleName)
}

func (u *User) IsFavorite(eventID bson.ObjectID) bool {
	return slices.Contains(u.Favorites, eventID)
}

func (u *User) IsParticipating(eventID bson.ObjectID) bool {
	return slices.Contains(u.Participations, eventID)
}

// EventIDs returns the event ids the user holds for the given relation.
func (u *User) EventIDs(relation Relation) []bson.ObjectID {
	switch relation {
	case RelationFavorite:
		return u.Favorites
	case RelationParticipation:
		return u.Participations
	}
	return nil
}
