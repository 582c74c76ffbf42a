package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/schema"
	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/helpers"
	"github.com/joeyave/event-buddy/repository"
	"github.com/joeyave/event-buddy/service"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

type EventController struct {
	EventService      *service.EventService
	UserService       *service.UserService
	MembershipService *service.MembershipService
}

type listQuery struct {
	Q    string `schema:"q"`
	Lang string `schema:"lang"`
}

// EventView is an event as one caller sees it.
type EventView struct {
	*entity.Event
	Date           string `json:"date"`
	Favorite       bool   `json:"favorite"`
	Participating  bool   `json:"participating"`
	CanParticipate bool   `json:"canParticipate"`
}

func (c *EventController) List(ctx *gin.Context) {
	var query listQuery
	err := decoder.Decode(&query, ctx.Request.URL.Query())
	if err != nil {
		respondError(ctx, invalidRequest(err), "")
		return
	}

	var events []*entity.Event
	if query.Q != "" {
		events, err = c.EventService.Search(ctx.Request.Context(), query.Q)
	} else {
		events, err = c.EventService.FindAll(ctx.Request.Context())
	}
	if err != nil {
		respondError(ctx, err, "")
		return
	}

	user := c.viewer(ctx)
	views := make([]*EventView, 0, len(events))
	for _, event := range events {
		views = append(views, c.view(identityFrom(ctx), user, event, query.Lang))
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "events": views})
}

func (c *EventController) Get(ctx *gin.Context) {
	eventID, err := bson.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		respondError(ctx, service.ErrInvalidID, "")
		return
	}

	event, err := c.EventService.FindOneByID(ctx.Request.Context(), eventID)
	if err != nil {
		respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "event": c.view(identityFrom(ctx), c.viewer(ctx), event, ctx.Query("lang"))})
}

func (c *EventController) Participants(ctx *gin.Context) {
	eventID, err := bson.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		respondError(ctx, service.ErrInvalidID, "")
		return
	}

	participants, err := c.EventService.Participants(ctx.Request.Context(), eventID)
	if err != nil {
		respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "participants": participants})
}

func (c *EventController) Create(ctx *gin.Context) {
	var input service.CreateEventInput
	err := ctx.ShouldBindJSON(&input)
	if err != nil {
		respondError(ctx, &bindingError{err: err, message: capitalize(helpers.ErrEmptyField.Error())}, "")
		return
	}

	event, err := c.EventService.Create(ctx.Request.Context(), identityFrom(ctx), input)
	if err != nil {
		respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"status": "ok", "message": helpers.EventCreated, "event": event})
}

func (c *EventController) ToggleFavorite(ctx *gin.Context) {
	eventID, err := bson.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		respondError(ctx, service.ErrInvalidID, "")
		return
	}

	favorite, err := c.MembershipService.ToggleFavorite(ctx.Request.Context(), identityFrom(ctx).UserID, eventID)
	if err != nil {
		respondError(ctx, err, helpers.FailedToUpdateFavorite)
		return
	}

	message := helpers.RemovedFromFavorites
	if favorite {
		message = helpers.AddedToFavorites
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "favorite": favorite, "message": message})
}

func (c *EventController) ToggleParticipation(ctx *gin.Context) {
	eventID, err := bson.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		respondError(ctx, service.ErrInvalidID, "")
		return
	}

	participating, err := c.MembershipService.ToggleParticipation(ctx.Request.Context(), identityFrom(ctx).UserID, eventID)
	if err != nil {
		respondError(ctx, err, helpers.FailedToUpdateParticipation)
		return
	}

	message := helpers.LeftEvent
	if participating {
		message = helpers.JoinedEvent
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "participating": participating, "message": message})
}

// viewer loads the caller's user document for the membership flags. Admins have none.
func (c *EventController) viewer(ctx *gin.Context) *entity.User {
	identity := identityFrom(ctx)
	if identity == nil || !CanParticipate(identity.Role) {
		return nil
	}

	user, err := c.UserService.FindOneByID(ctx.Request.Context(), identity.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error().Err(err).Str("userId", identity.UserID.Hex()).Msg("failed to load viewer")
		}
		return nil
	}
	return user
}

func (c *EventController) view(identity *entity.Identity, user *entity.User, event *entity.Event, lang string) *EventView {
	if lang == "" {
		lang = helpers.DefaultLang
	}
	v := &EventView{
		Event: event,
		Date:  event.DateString(lang),
	}
	if identity != nil {
		v.CanParticipate = CanParticipate(identity.Role)
	}
	if user != nil {
		v.Favorite = user.IsFavorite(event.ID)
		v.Participating = user.IsParticipating(event.ID)
	}
	return v
}
