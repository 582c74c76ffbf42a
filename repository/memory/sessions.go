package memory

import (
	"context"
	"time"

	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/repository"
)

type SessionRepository struct {
	s *Store
}

func (r *SessionRepository) InsertOne(ctx context.Context, session entity.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[session.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.sessions[session.ID] = session
	return nil
}

func (r *SessionRepository) FindOneByID(ctx context.Context, ID string) (*entity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	session, ok := r.s.sessions[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (r *SessionRepository) UpdateAuthenticatedAt(ctx context.Context, ID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[ID]
	if !ok {
		return repository.ErrNotFound
	}
	session.AuthenticatedAt = at
	r.s.sessions[ID] = session
	return nil
}

func (r *SessionRepository) DeleteOne(ctx context.Context, ID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.sessions, ID)
	return nil
}
