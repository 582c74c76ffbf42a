package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/event-buddy/config"
	"github.com/joeyave/event-buddy/controller"
	"github.com/joeyave/event-buddy/helpers"
	"github.com/joeyave/event-buddy/migrations"
	"github.com/joeyave/event-buddy/repository"
	"github.com/joeyave/event-buddy/repository/memory"
	"github.com/joeyave/event-buddy/service"
	"github.com/rs/zerolog/log"
)

type stores struct {
	events       service.EventRepository
	users        service.UserRepository
	participants service.ParticipantRepository
	sessions     service.SessionRepository
	watcher      service.Watcher
	transactor   service.Transactor
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config.")
	}
	helpers.SetupLogger(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s, err := openStores(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Error opening store.")
	}
	defer s.close()

	authService := service.NewAuthService(s.users, s.sessions, service.AuthSettings{
		Secret:            cfg.Auth.JWTSecret,
		Issuer:            cfg.Auth.Issuer,
		TokenTTL:          cfg.Auth.TokenTTL,
		RecentLoginWindow: cfg.Auth.RecentLoginWindow,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
	})
	userService := service.NewUserService(s.users)
	eventService := service.NewEventService(s.events, s.users, s.participants, cfg.Store.MaxInQuery)
	membershipService := service.NewMembershipService(s.users, s.events, s.participants, s.transactor,
		service.ParticipationMode(cfg.Membership.ParticipationMode))
	subscriptionService := service.NewSubscriptionService(s.watcher, eventService, s.users)

	router := controller.NewRouter(controller.Controllers{
		Auth: &controller.AuthController{
			AuthService: authService,
		},
		Users: &controller.UserController{
			UserService:       userService,
			EventService:      eventService,
			MembershipService: membershipService,
		},
		Events: &controller.EventController{
			EventService:      eventService,
			UserService:       userService,
			MembershipService: membershipService,
		},
		Ws: controller.NewWsController(subscriptionService, cfg.WS.WriteTimeout, cfg.WS.PingInterval),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("driver", cfg.Store.Driver).
			Str("participationMode", string(membershipService.Mode())).
			Msg("Server starting.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Error starting server.")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Live subscriptions hold websocket handlers open; end them before draining.
	subscriptionService.Close()

	ctx, cancel := context.WithTimeout(context.Background(), helpers.ShutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown.")
	}

	log.Info().Msg("Server exited.")
}

func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		store := memory.New(cfg.Store.MaxInQuery)
		log.Warn().Msg("Using the in-memory store, data is lost on restart.")
		return &stores{
			events:       store.Events(),
			users:        store.Users(),
			participants: store.Participants(),
			sessions:     store.Sessions(),
			watcher:      store.Watcher(),
			transactor:   store.Transactor(),
			close:        func() {},
		}, nil
	}

	mongoClient, err := repository.Connect(cfg.Mongo.URI, cfg.Mongo.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
	defer cancel()
	if err := migrations.EnsureIndexes(ctx, mongoClient.Database(cfg.Mongo.Database)); err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, err
	}

	db := cfg.Mongo.Database
	return &stores{
		events:       repository.NewEventRepository(mongoClient, db),
		users:        repository.NewUserRepository(mongoClient, db),
		participants: repository.NewParticipantRepository(mongoClient, db),
		sessions:     repository.NewSessionRepository(mongoClient, db),
		watcher:      repository.NewWatcher(mongoClient, db),
		transactor:   repository.NewTransactor(mongoClient),
		close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = mongoClient.Disconnect(ctx)
		},
	}, nil
}
