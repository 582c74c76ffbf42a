package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// TokenStore keeps the session in a file so the CLI stays signed in between runs.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// DefaultTokenPath is <user config dir>/event-buddy/session.json.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "event-buddy", "session.json"), nil
}

// Load returns nil without an error when no session was saved.
func (s *TokenStore) Load() (*Session, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session Session
	err = json.Unmarshal(b, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *TokenStore) Save(session *Session) error {
	err := os.MkdirAll(filepath.Dir(s.path), 0o700)
	if err != nil {
		return err
	}
	b, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

func (s *TokenStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Persist saves every session the holder receives and removes the file on sign-out.
func (s *TokenStore) Persist(holder *IdentityHolder) (cancel func()) {
	first := true
	return holder.Subscribe(func(session *Session) {
		if first {
			first = false
			return
		}
		if session == nil {
			_ = s.Clear()
			return
		}
		_ = s.Save(session)
	})
}
