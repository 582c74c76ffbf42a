package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/event-buddy/helpers"
	"github.com/joeyave/event-buddy/service"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type UserController struct {
	UserService       *service.UserService
	EventService      *service.EventService
	MembershipService *service.MembershipService
}

func (c *UserController) Me(ctx *gin.Context) {
	identity := identityFrom(ctx)
	user, err := c.UserService.FindOneByID(ctx.Request.Context(), identity.UserID)
	if err != nil {
		respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "user": user})
}

func (c *UserController) Navigation(ctx *gin.Context) {
	identity := identityFrom(ctx)
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"role":   identity.Role,
		"tabs":   Tabs(identity.Role),
	})
}

func (c *UserController) Favorites(ctx *gin.Context) {
	events, err := c.EventService.FavoriteEvents(ctx.Request.Context(), identityFrom(ctx).UserID)
	if err != nil {
		respondError(ctx, err, "")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "events": events})
}

func (c *UserController) Participations(ctx *gin.Context) {
	events, err := c.EventService.ParticipationEvents(ctx.Request.Context(), identityFrom(ctx).UserID)
	if err != nil {
		respondError(ctx, err, "")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "events": events})
}

// SetFavorite answers PUT (favorite) and DELETE (not favorite).
func (c *UserController) SetFavorite(ctx *gin.Context) {
	eventID, err := bson.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		respondError(ctx, service.ErrInvalidID, "")
		return
	}

	favorite := ctx.Request.Method == http.MethodPut
	err = c.MembershipService.SetFavorite(ctx.Request.Context(), identityFrom(ctx).UserID, eventID, favorite)
	if err != nil {
		respondError(ctx, err, helpers.FailedToUpdateFavorite)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "favorite": favorite})
}

// SetParticipation answers PUT (join) and DELETE (leave).
func (c *UserController) SetParticipation(ctx *gin.Context) {
	eventID, err := bson.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		respondError(ctx, service.ErrInvalidID, "")
		return
	}

	participating := ctx.Request.Method == http.MethodPut
	if participating {
		err = c.MembershipService.Join(ctx.Request.Context(), identityFrom(ctx).UserID, eventID)
	} else {
		err = c.MembershipService.Leave(ctx.Request.Context(), identityFrom(ctx).UserID, eventID)
	}
	if err != nil {
		respondError(ctx, err, helpers.FailedToUpdateParticipation)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "participating": participating})
}
