package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/event-buddy/entity"
)

type Controllers struct {
	Auth   *AuthController
	Users  *UserController
	Events *EventController
	Ws     *WsController
}

func NewRouter(c Controllers) *gin.Engine {
	r := gin.New()
	r.Use(Logger(), Recovery())

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/auth/signup", c.Auth.SignUp)
	api.POST("/auth/signin", c.Auth.SignIn)

	authed := api.Group("", Authenticate(c.Auth.AuthService))
	authed.POST("/auth/signout", c.Auth.SignOut)
	authed.POST("/auth/reauthenticate", c.Auth.Reauthenticate)
	authed.PUT("/me/password", c.Auth.ChangePassword)
	authed.GET("/me", c.Users.Me)
	authed.GET("/me/navigation", c.Users.Navigation)
	authed.GET("/events", c.Events.List)
	authed.GET("/events/:id", c.Events.Get)
	authed.GET("/events/:id/participants", c.Events.Participants)
	authed.GET("/ws", c.Ws.Serve)

	admin := authed.Group("", RequireRole(entity.RoleAdmin))
	admin.POST("/events", c.Events.Create)

	user := authed.Group("", RequireRole(entity.RoleUser))
	user.POST("/events/:id/favorite", c.Events.ToggleFavorite)
	user.POST("/events/:id/participation", c.Events.ToggleParticipation)
	user.GET("/me/favorites", c.Users.Favorites)
	user.PUT("/me/favorites/:id", c.Users.SetFavorite)
	user.DELETE("/me/favorites/:id", c.Users.SetFavorite)
	user.GET("/me/participations", c.Users.Participations)
	user.PUT("/me/participations/:id", c.Users.SetParticipation)
	user.DELETE("/me/participations/:id", c.Users.SetParticipation)

	return r
}
