package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/joeyave/event-buddy/config"
	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/helpers"
	"github.com/joeyave/event-buddy/migrations"
	"github.com/joeyave/event-buddy/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const usage = `event-buddy database maintenance.

Usage:
    migrate indexes
    migrate participants
    migrate promote <email> [--role=<role>]
    migrate delete-event <id>
    migrate -h | --help

Options:
    -h --help       Show this screen.
    --role=<role>   Role to assign, admin or user [default: admin].`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], "")
	if err != nil {
		panic(fmt.Sprintf("failed to parse args: %v", err))
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	helpers.SetupLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	mongoClient, err := repository.Connect(cfg.Mongo.URI, cfg.Mongo.ConnectTimeout)
	if err != nil {
		panic(fmt.Sprintf("failed to connect mongo: %v", err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db := mongoClient.Database(cfg.Mongo.Database)

	if x, _ := opts.Bool("indexes"); x {
		if err := migrations.EnsureIndexes(ctx, db); err != nil {
			fail("indexes", err)
		}
		fmt.Println("Indexes are up to date.")
	} else if x, _ := opts.Bool("participants"); x {
		if err := migrations.EnsureIndexes(ctx, db); err != nil {
			fail("indexes", err)
		}
		migrated, err := migrations.MigrateParticipantArrays(ctx, db)
		if err != nil {
			fail(fmt.Sprintf("participants (migrated=%d)", migrated), err)
		}
		fmt.Printf("Migration finished. migrated=%d\n", migrated)
	} else if x, _ := opts.Bool("promote"); x {
		promote(ctx, opts, repository.NewUserRepository(mongoClient, cfg.Mongo.Database))
	} else if x, _ := opts.Bool("delete-event"); x {
		deleteEvent(ctx, opts, repository.NewEventRepository(mongoClient, cfg.Mongo.Database))
	}
}

func promote(ctx context.Context, opts docopt.Opts, users *repository.UserRepository) {
	email, _ := opts.String("<email>")
	roleName, _ := opts.String("--role")

	role := entity.ParseRole(roleName)
	if role.String() != roleName {
		fail("promote", fmt.Errorf("unknown role %q", roleName))
	}

	user, err := users.FindOneByEmail(ctx, helpers.NormalizeEmail(email))
	if err != nil {
		fail("promote", err)
	}
	if err := users.UpdateRole(ctx, user.ID, role); err != nil {
		fail("promote", err)
	}
	fmt.Printf("[OK] %s %s is now %s\n", user.ID.Hex(), user.Email, role)
}

func deleteEvent(ctx context.Context, opts docopt.Opts, events *repository.EventRepository) {
	hex, _ := opts.String("<id>")
	eventID, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		fail("delete-event", err)
	}
	if err := events.DeleteOneByID(ctx, eventID); err != nil {
		fail("delete-event", err)
	}
	fmt.Printf("[OK] %s deleted\n", eventID.Hex())
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "[FAIL] %s: %v\n", step, err)
	os.Exit(1)
}
