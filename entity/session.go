package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Session struct {
	ID              string        `bson:"_id"`
	UserID          bson.ObjectID `bson:"userId"`
	CreatedAt       time.Time     `bson:"createdAt"`
	AuthenticatedAt time.Time     `bson:"authenticatedAt"`
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID          bson.ObjectID `json:"userId"`
	Email           string        `json:"email"`
	Role            Role          `json:"role"`
	SessionID       string        `json:"sessionId,omitempty"`
	AuthenticatedAt time.Time     `json:"authenticatedAt"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
