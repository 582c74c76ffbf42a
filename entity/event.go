package entity

import (
	"fmt"
	"time"

	"github.com/joeyave/event-buddy/util"
	"github.com/klauspost/lctime"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
)

type Event struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string        `bson:"title,omitempty" json:"title"`
	Description string        `bson:"description,omitempty" json:"description"`
	Location    string        `bson:"location,omitempty" json:"location"`
	TimeUTC     time.Time     `bson:"time,omitempty" json:"time"`
	ImageURL    string        `bson:"imageUrl,omitempty" json:"imageUrl"`

	CreatorID bson.ObjectID `bson:"creatorId,omitempty" json:"creatorId"`
	CreatedAt time.Time     `bson:"createdAt,omitempty" json:"createdAt"`

	// Joined from the participants collection, never stored on the event document.
	Participants []*Participant `bson:"participants,omitempty" json:"participants,omitempty"`
}

func (e *Event) ParticipantIDs() []bson.ObjectID {
	ids := make([]bson.ObjectID, 0, len(e.Participants))
	for _, p := range e.Participants {
		ids = append(ids, p.Key.UserID)
	}
	return ids
}

func (e *Event) HasParticipant(userID bson.ObjectID) bool {
	return slices.ContainsFunc(e.Participants, func(p *Participant) bool {
		return p.Key.UserID == userID
	})
}

func (e *Event) Alias(lang string) string {
	t, err := lctime.StrftimeLoc(util.IetfToIsoLangCode(lang), "%A, %d.%m.%Y %H:%M", e.TimeUTC)
	if err != nil {
		t = e.TimeUTC.Format("02.01.2006 15:04")
	}
	return fmt.Sprintf("%s (%s)", e.Title, t)
}

func (e *Event) DateString(lang string) string {
	if e.TimeUTC.IsZero() {
		return ""
	}
	t, err := lctime.StrftimeLoc(util.IetfToIsoLangCode(lang), "%a, %d %b %Y %H:%M", e.TimeUTC)
	if err != nil {
		return e.TimeUTC.Format(time.RFC1123)
	}
	return t
}
