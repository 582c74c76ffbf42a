package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/event-buddy/helpers"
	"github.com/joeyave/event-buddy/repository"
	"github.com/joeyave/event-buddy/service"
	"github.com/rs/zerolog/log"
)

// CodeRequiresRecentLogin tells the client to run the reauthentication flow and retry.
const CodeRequiresRecentLogin = "requires-recent-login"

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// respondError logs err once and answers with a message the user can read.
// fallback is the notice for failures that have no specific message.
func respondError(ctx *gin.Context, err error, fallback string) {
	status, message, code := classify(err, fallback)

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("method", ctx.Request.Method).
		Str("path", ctx.FullPath()).
		Int("status", status).
		Msg(message)

	ctx.AbortWithStatusJSON(status, errorResponse{Status: "error", Message: message, Code: code})
}

func classify(err error, fallback string) (int, string, string) {
	var perr *service.ParticipationError
	var verr *bindingError

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, helpers.NotFound, ""
	case errors.Is(err, service.ErrReauthenticationRequired):
		return http.StatusForbidden, helpers.ReauthenticationRequired, CodeRequiresRecentLogin
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, helpers.NotAllowed, ""
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, helpers.InvalidCredentials, ""
	case errors.Is(err, service.ErrInvalidSession):
		return http.StatusUnauthorized, helpers.LoginRequired, ""
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, helpers.EmailTaken, ""
	case errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidID),
		errors.Is(err, service.ErrUnknownTopic),
		errors.Is(err, helpers.ErrEmptyField),
		errors.Is(err, helpers.ErrInvalidImageURL):
		return http.StatusBadRequest, capitalize(err.Error()), ""
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.message, ""
	case errors.As(err, &perr):
		return http.StatusBadGateway, helpers.FailedToUpdateParticipation, ""
	}

	if fallback == "" {
		fallback = helpers.SomethingWentWrong
	}
	return http.StatusInternalServerError, fallback, ""
}

// bindingError wraps request body or query decoding failures.
type bindingError struct {
	err     error
	message string
}

func (e *bindingError) Error() string { return e.err.Error() }
func (e *bindingError) Unwrap() error { return e.err }

func invalidRequest(err error) error {
	return &bindingError{err: err, message: "Invalid request"}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
