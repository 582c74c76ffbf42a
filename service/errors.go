package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrEmailTaken               = errors.New("email is already registered")
	ErrWeakPassword             = errors.New("password is too short")
	ErrReauthenticationRequired = errors.New("requires recent login")
	ErrInvalidSession           = errors.New("invalid or expired session")
	ErrForbidden                = errors.New("not allowed for this role")
	ErrInvalidID                = errors.New("invalid id")
)

// ParticipationError reports the outcome of both writes of a participation change.
// A nil field means that side was written.
type ParticipationError struct {
	Join     bool
	UserErr  error
	EventErr error
}

func (e *ParticipationError) Error() string {
	action := "leave"
	if e.Join {
		action = "join"
	}
	switch {
	case e.UserErr != nil && e.EventErr != nil:
		return fmt.Sprintf("%s: user write: %v; event write: %v", action, e.UserErr, e.EventErr)
	case e.UserErr != nil:
		return fmt.Sprintf("%s: user write: %v", action, e.UserErr)
	default:
		return fmt.Sprintf("%s: event write: %v", action, e.EventErr)
	}
}

// Partial is true when exactly one side was written and the two copies now disagree.
func (e *ParticipationError) Partial() bool {
	return (e.UserErr == nil) != (e.EventErr == nil)
}

func (e *ParticipationError) Unwrap() []error {
	var errs []error
	if e.UserErr != nil {
		errs = append(errs, e.UserErr)
	}
	if e.EventErr != nil {
		errs = append(errs, e.EventErr)
	}
	return errs
}
