package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/joeyave/event-buddy/client"
	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/helpers"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const version = "0.1.0"

const usage = `event-buddy command line client.

Usage:
    eventbuddy signup [options] <email> <password>
    eventbuddy signin [options] <email> <password>
    eventbuddy signout [options]
    eventbuddy whoami [options]
    eventbuddy events [options] [<query>]
    eventbuddy event [options] <id>
    eventbuddy favorite [options] <id>
    eventbuddy join [options] <id>
    eventbuddy favorites [options]
    eventbuddy participations [options]
    eventbuddy create-event [options] --title=<title> --description=<text> --location=<place> --time=<time> --image=<url>
    eventbuddy passwd [options] <new_password> [--current=<password>]
    eventbuddy watch [options] <topic>
    eventbuddy -h | --help
    eventbuddy --version

Topics for watch: events, user, favorites, participations, event/<id>, event/<id>/participants.

Options:
    -h --help               Show this screen.
    --version               Show version.
    --url=<url>             API base URL [default: http://localhost:8080].
    --lang=<lang>           Language for dates [default: en].
    --session=<path>        Session file (defaults to the user config dir).
    --debug                 Log every API request.
    --title=<title>         Event title.
    --description=<text>    Event description.
    --location=<place>      Event location.
    --time=<time>           Event time, RFC 3339 (2026-05-01T19:30:00+03:00).
    --image=<url>           Event image URL.
    --current=<password>    Current password, needed when the session is not recent.`

type app struct {
	opts   docopt.Opts
	client *client.Client
	lang   string
}

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fail(err)
	}

	debug, _ := opts.Bool("--debug")
	level := "warn"
	if debug {
		level = "debug"
	}
	helpers.SetupLogger(level, "console", os.Stderr)

	a, err := newApp(opts, debug)
	if err != nil {
		fail(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	commands := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{"signup", a.signUp},
		{"signin", a.signIn},
		{"signout", a.signOut},
		{"whoami", a.whoami},
		{"events", a.events},
		{"event", a.event},
		{"favorite", a.favorite},
		{"join", a.join},
		{"favorites", a.favorites},
		{"participations", a.participations},
		{"create-event", a.createEvent},
		{"passwd", a.passwd},
		{"watch", a.watch},
	}
	for _, c := range commands {
		if on, _ := opts.Bool(c.name); on {
			if err := c.run(ctx); err != nil {
				fail(err)
			}
			return
		}
	}
}

func newApp(opts docopt.Opts, debug bool) (*app, error) {
	baseURL, _ := opts.String("--url")
	lang, _ := opts.String("--lang")

	path, _ := opts.String("--session")
	if path == "" {
		var err error
		path, err = client.DefaultTokenPath()
		if err != nil {
			return nil, err
		}
	}
	store := client.NewTokenStore(path)

	holder := client.NewIdentityHolder()
	session, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ignoring unreadable session file")
	}
	if session != nil && (session.ExpiresAt.IsZero() || session.ExpiresAt.After(time.Now())) {
		holder.Set(session)
	}
	store.Persist(holder)

	var clientOpts []client.Option
	if debug {
		clientOpts = append(clientOpts, client.WithRequestLogging())
	}

	return &app{
		opts:   opts,
		client: client.New(baseURL, holder, clientOpts...),
		lang:   lang,
	}, nil
}

func (a *app) signUp(ctx context.Context) error {
	email, _ := a.opts.String("<email>")
	password, _ := a.opts.String("<password>")
	session, err := a.client.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed up as %s\n", session.Identity.Email)
	return nil
}

func (a *app) signIn(ctx context.Context) error {
	email, _ := a.opts.String("<email>")
	password, _ := a.opts.String("<password>")
	session, err := a.client.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%s)\n", session.Identity.Email, session.Identity.Role)
	return nil
}

func (a *app) signOut(ctx context.Context) error {
	if a.client.Identity().Current() == nil {
		fmt.Println("Not signed in")
		return nil
	}
	err := a.client.SignOut(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("server sign-out failed, local session removed")
	}
	fmt.Println("Signed out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	user, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	tabs, err := a.client.Navigation(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", user.Email, user.Role())
	fmt.Printf("Favorites: %d, participations: %d\n", len(user.Favorites), len(user.Participations))
	fmt.Printf("Tabs: %s\n", strings.Join(tabs, " | "))
	return nil
}

func (a *app) events(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	query, _ := a.opts.String("<query>")
	events, err := a.client.Events(ctx, query, a.lang)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No events")
	}
	for _, e := range events {
		marks := ""
		if e.Favorite {
			marks += " ♥"
		}
		if e.Participating {
			marks += " ✓"
		}
		fmt.Printf("%s  %s  %s @ %s%s\n", e.ID.Hex(), e.Date, e.Title, e.Location, marks)
	}
	return nil
}

func (a *app) event(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	eventID, err := a.eventID()
	if err != nil {
		return err
	}
	e, err := a.client.Event(ctx, eventID, a.lang)
	if client.IsNotFound(err) {
		fmt.Println(helpers.NotFound)
		return nil
	}
	if err != nil {
		return err
	}
	participants, err := a.client.Participants(ctx, eventID)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n%s\n%s\n\n%s\n", e.Title, e.Date, e.Location, e.Description)
	if e.ImageURL != "" {
		fmt.Printf("Image: %s\n", e.ImageURL)
	}
	if e.CanParticipate {
		fmt.Printf("Favorite: %t, participating: %t\n", e.Favorite, e.Participating)
	}
	fmt.Printf("\nParticipants (%d):\n", len(participants))
	for _, p := range participants {
		fmt.Printf("  %s\n", p.Email)
	}
	return nil
}

func (a *app) favorite(ctx context.Context) error {
	view, eventID, err := a.membershipView(ctx)
	if err != nil {
		return err
	}
	favorite, err := view.ToggleFavorite(ctx, eventID)
	if err != nil {
		log.Debug().Err(err).Msg("toggle favorite failed")
		return errors.New(helpers.FailedToUpdateFavorite)
	}
	if favorite {
		fmt.Println(helpers.AddedToFavorites)
	} else {
		fmt.Println(helpers.RemovedFromFavorites)
	}
	return nil
}

func (a *app) join(ctx context.Context) error {
	view, eventID, err := a.membershipView(ctx)
	if err != nil {
		return err
	}
	participating, err := view.ToggleParticipation(ctx, eventID)
	if err != nil {
		log.Debug().Err(err).Msg("toggle participation failed")
		return errors.New(helpers.FailedToUpdateParticipation)
	}
	if participating {
		fmt.Println(helpers.JoinedEvent)
	} else {
		fmt.Println(helpers.LeftEvent)
	}
	return nil
}

// membershipView loads the caller's current memberships. Admins are not offered toggles.
func (a *app) membershipView(ctx context.Context) (*client.MembershipView, bson.ObjectID, error) {
	if err := a.requireSession(); err != nil {
		return nil, bson.ObjectID{}, err
	}
	if a.client.Identity().Current().Identity.IsAdmin() {
		return nil, bson.ObjectID{}, errors.New(helpers.NotAllowed)
	}
	eventID, err := a.eventID()
	if err != nil {
		return nil, bson.ObjectID{}, err
	}
	user, err := a.client.Me(ctx)
	if err != nil {
		return nil, bson.ObjectID{}, err
	}
	view := client.NewMembershipView(a.client)
	view.ApplySnapshot(user)
	return view, eventID, nil
}

func (a *app) favorites(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	events, err := a.client.Favorites(ctx)
	if err != nil {
		return err
	}
	printEvents(events, a.lang)
	return nil
}

func (a *app) participations(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	events, err := a.client.Participations(ctx)
	if err != nil {
		return err
	}
	printEvents(events, a.lang)
	return nil
}

func (a *app) createEvent(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	title, _ := a.opts.String("--title")
	description, _ := a.opts.String("--description")
	location, _ := a.opts.String("--location")
	at, _ := a.opts.String("--time")
	image, _ := a.opts.String("--image")

	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return fmt.Errorf("--time: %w", err)
	}

	event, err := a.client.CreateEvent(ctx, client.CreateEventInput{
		Title:       title,
		Description: description,
		Location:    location,
		Time:        t,
		ImageURL:    image,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", helpers.EventCreated, event.ID.Hex())
	return nil
}

func (a *app) passwd(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	newPassword, _ := a.opts.String("<new_password>")
	current, _ := a.opts.String("--current")

	err := a.client.ChangePassword(ctx, newPassword, current)
	if client.IsReauthenticationRequired(err) {
		return errors.New(helpers.ReauthenticationRequired + " (--current)")
	}
	if err != nil {
		return err
	}
	fmt.Println(helpers.PasswordUpdated)
	return nil
}

func (a *app) watch(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	topic, _ := a.opts.String("<topic>")

	stream, err := a.client.Dial(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	failed := make(chan error, 1)
	handle, err := stream.Subscribe(ctx, topic, func(data json.RawMessage) {
		var v any
		if json.Unmarshal(data, &v) == nil {
			data, _ = json.MarshalIndent(v, "", "  ")
		}
		fmt.Printf("--- %s %s\n%s\n", topic, time.Now().Format(time.TimeOnly), data)
	}, func(err error) {
		select {
		case failed <- err:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer handle.Cancel()

	select {
	case <-ctx.Done():
		return nil
	case err := <-failed:
		return err
	case <-stream.Done():
		return client.ErrStreamClosed
	}
}

func (a *app) requireSession() error {
	if a.client.Identity().Current() == nil {
		return errors.New(helpers.LoginRequired)
	}
	return nil
}

func (a *app) eventID() (bson.ObjectID, error) {
	hex, _ := a.opts.String("<id>")
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("invalid event id %q", hex)
	}
	return id, nil
}

func printEvents(events []*entity.Event, lang string) {
	if len(events) == 0 {
		fmt.Println("No events")
	}
	for _, e := range events {
		fmt.Printf("%s  %s\n", e.ID.Hex(), e.Alias(lang))
	}
}

func fail(err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintln(os.Stderr, apiErr.Message)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
