package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/helpers"
	"github.com/joeyave/event-buddy/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const identityKey = "identity"

// Logger logs every request through the global zerolog logger.
func Logger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		status := ctx.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Info()
		}

		event.Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", ctx.ClientIP()).
			Msg("request")
	}
}

func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
		log.Error().Interface("panic", recovered).Str("path", ctx.Request.URL.Path).Msg("recovered from panic")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Status: "error", Message: helpers.SomethingWentWrong})
	})
}

// Authenticate resolves the bearer token into an identity. Websocket clients that cannot
// set headers may pass the token as the "token" query parameter.
func Authenticate(authService *service.AuthService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			token = ctx.Query("token")
		}
		if token == "" {
			respondError(ctx, service.ErrInvalidSession, "")
			return
		}

		identity, err := authService.Authenticate(ctx.Request.Context(), token)
		if err != nil {
			respondError(ctx, err, "")
			return
		}

		ctx.Set(identityKey, identity)
		ctx.Next()
	}
}

// RequireRole lets only callers with the given role through.
func RequireRole(role entity.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity := identityFrom(ctx)
		if identity == nil || identity.Role != role {
			respondError(ctx, service.ErrForbidden, "")
			return
		}
		ctx.Next()
	}
}

func identityFrom(ctx *gin.Context) *entity.Identity {
	v, ok := ctx.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*entity.Identity)
	return identity
}
