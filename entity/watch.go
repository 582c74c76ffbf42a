package entity

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type WatchKind int

const (
	WatchEvents WatchKind = iota + 1
	WatchEvent
	WatchParticipants
	WatchUser
)

// WatchTarget selects the documents a change feed reports on.
type WatchTarget struct {
	Kind WatchKind
	ID   bson.ObjectID
}

func EventsTarget() WatchTarget                { return WatchTarget{Kind: WatchEvents} }
func EventTarget(id bson.ObjectID) WatchTarget { return WatchTarget{Kind: WatchEvent, ID: id} }
func ParticipantsTarget(id bson.ObjectID) WatchTarget {
	return WatchTarget{Kind: WatchParticipants, ID: id}
}
func UserTarget(id bson.ObjectID) WatchTarget { return WatchTarget{Kind: WatchUser, ID: id} }

func (t WatchTarget) String() string {
	switch t.Kind {
	case WatchEvents:
		return "events"
	case WatchEvent:
		return fmt.Sprintf("events/%s", t.ID.Hex())
	case WatchParticipants:
		return fmt.Sprintf("events/%s/participants", t.ID.Hex())
	case WatchUser:
		return fmt.Sprintf("users/%s", t.ID.Hex())
	}
	return "unknown"
}

// Change is one notification of a change feed. The zero value means "something changed";
// a non-nil Err means the feed failed and no more changes follow.
type Change struct {
	Err error
}
