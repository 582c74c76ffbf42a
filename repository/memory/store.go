// Package memory keeps every collection in process memory. It honours the same contracts
// as the MongoDB repositories, including the per-query id list limit and change
// notifications, and backs the "memory" store driver and the tests.
package memory

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/joeyave/event-buddy/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type Store struct {
	mu         sync.RWMutex
	txMu       sync.Mutex
	maxInQuery int
	now        func() time.Time

	events       map[bson.ObjectID]entity.Event
	users        map[bson.ObjectID]entity.User
	participants map[entity.ParticipantKey]entity.Participant
	sessions     map[string]entity.Session

	watches   map[int]*watch
	nextWatch int
}

type state struct {
	events       map[bson.ObjectID]entity.Event
	users        map[bson.ObjectID]entity.User
	participants map[entity.ParticipantKey]entity.Participant
	sessions     map[string]entity.Session
}

type Option func(*Store)

// WithClock replaces time.Now for server-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(maxInQuery int, opts ...Option) *Store {
	s := &Store{
		maxInQuery:   maxInQuery,
		now:          time.Now,
		events:       map[bson.ObjectID]entity.Event{},
		users:        map[bson.ObjectID]entity.User{},
		participants: map[entity.ParticipantKey]entity.Participant{},
		sessions:     map[string]entity.Session{},
		watches:      map[int]*watch{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Events() *EventRepository             { return &EventRepository{s: s} }
func (s *Store) Users() *UserRepository               { return &UserRepository{s: s} }
func (s *Store) Participants() *ParticipantRepository { return &ParticipantRepository{s: s} }
func (s *Store) Sessions() *SessionRepository         { return &SessionRepository{s: s} }
func (s *Store) Watcher() *Watcher                    { return &Watcher{s: s} }
func (s *Store) Transactor() *Transactor              { return &Transactor{s: s} }

func (s *Store) snapshot() state {
	st := state{
		events:       make(map[bson.ObjectID]entity.Event, len(s.events)),
		users:        make(map[bson.ObjectID]entity.User, len(s.users)),
		participants: make(map[entity.ParticipantKey]entity.Participant, len(s.participants)),
		sessions:     make(map[string]entity.Session, len(s.sessions)),
	}
	for k, v := range s.events {
		st.events[k] = v
	}
	for k, v := range s.users {
		st.users[k] = copyUser(v)
	}
	for k, v := range s.participants {
		st.participants[k] = v
	}
	for k, v := range s.sessions {
		st.sessions[k] = v
	}
	return st
}

func (s *Store) restore(st state) {
	s.events = st.events
	s.users = st.users
	s.participants = st.participants
	s.sessions = st.sessions
}

// participantsOf returns the event's participant records ordered by join time. Callers hold mu.
func (s *Store) participantsOf(eventID bson.ObjectID) []*entity.Participant {
	var out []*entity.Participant
	for k, p := range s.participants {
		if k.EventID == eventID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return bytes.Compare(out[i].Key.UserID[:], out[j].Key.UserID[:]) < 0
	})
	return out
}

func copyUser(u entity.User) entity.User {
	u.Favorites = append([]bson.ObjectID(nil), u.Favorites...)
	u.Participations = append([]bson.ObjectID(nil), u.Participations...)
	return u
}

func sortEvents(events []*entity.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].TimeUTC.Equal(events[j].TimeUTC) {
			return events[i].TimeUTC.Before(events[j].TimeUTC)
		}
		return bytes.Compare(events[i].ID[:], events[j].ID[:]) < 0
	})
}
