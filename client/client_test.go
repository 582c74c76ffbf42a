package client

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/event-buddy/controller"
	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/repository/memory"
	"github.com/joeyave/event-buddy/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

func newServer(t *testing.T, recentLoginWindow time.Duration) (*httptest.Server, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	zerolog.SetGlobalLevel(zerolog.Disabled)

	store := memory.New(10)
	authService := service.NewAuthService(store.Users(), store.Sessions(), service.AuthSettings{
		Secret:            "test-secret",
		Issuer:            "event-buddy-test",
		RecentLoginWindow: recentLoginWindow,
		BcryptCost:        bcrypt.MinCost,
	})
	userService := service.NewUserService(store.Users())
	eventService := service.NewEventService(store.Events(), store.Users(), store.Participants(), 10)
	membershipService := service.NewMembershipService(store.Users(), store.Events(), store.Participants(), store.Transactor(), service.ParticipationDualWrite)
	subscriptionService := service.NewSubscriptionService(store.Watcher(), eventService, store.Users())

	router := controller.NewRouter(controller.Controllers{
		Auth:   &controller.AuthController{AuthService: authService},
		Users:  &controller.UserController{UserService: userService, EventService: eventService, MembershipService: membershipService},
		Events: &controller.EventController{EventService: eventService, UserService: userService, MembershipService: membershipService},
		Ws:     controller.NewWsController(subscriptionService, time.Second, time.Second),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		subscriptionService.Close()
	})
	return server, store
}

func seedEvent(t *testing.T, store *memory.Store, title string) *entity.Event {
	t.Helper()
	e, err := store.Events().UpdateOne(context.Background(), entity.Event{
		ID:      bson.NewObjectID(),
		Title:   title,
		TimeUTC: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return e
}

func TestClient_MembershipRoundTrip(t *testing.T) {
	server, store := newServer(t, 5*time.Minute)
	evt := seedEvent(t, store, "evt1")
	c := New(server.URL, nil)
	ctx := context.Background()

	session, err := c.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, session.Identity.Role)
	assert.Same(t, session, c.Identity().Current())

	tabs, err := c.Navigation(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Favorites", "Participations", "Profile"}, tabs)

	view := NewMembershipView(c)
	favorite, err := view.ToggleFavorite(ctx, evt.ID)
	require.NoError(t, err)
	assert.True(t, favorite)

	participating, err := view.ToggleParticipation(ctx, evt.ID)
	require.NoError(t, err)
	assert.True(t, participating)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, []bson.ObjectID{evt.ID}, me.Favorites)
	assert.Equal(t, []bson.ObjectID{evt.ID}, me.Participations)

	detail, err := c.Event(ctx, evt.ID, "en")
	require.NoError(t, err)
	assert.True(t, detail.Favorite)
	assert.True(t, detail.Participating)
	assert.True(t, detail.HasParticipant(me.ID))

	favorites, err := c.Favorites(ctx)
	require.NoError(t, err)
	assert.Len(t, favorites, 1)

	_, err = c.Event(ctx, bson.NewObjectID(), "")
	assert.True(t, IsNotFound(err))

	require.NoError(t, c.SignOut(ctx))
	assert.Nil(t, c.Identity().Current())
}

func TestClient_ChangePasswordNeedsReauthentication(t *testing.T) {
	server, _ := newServer(t, time.Nanosecond)
	c := New(server.URL, nil)
	ctx := context.Background()

	_, err := c.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	err = c.ChangePassword(ctx, "secret2", "")
	assert.True(t, IsReauthenticationRequired(err))

	require.NoError(t, c.Reauthenticate(ctx, "secret1"))
	require.NoError(t, c.ChangePassword(ctx, "secret2", "secret1"))

	_, err = c.SignIn(ctx, "a@example.com", "secret2")
	assert.NoError(t, err)
}

func TestStream_UserSnapshots(t *testing.T) {
	server, store := newServer(t, 5*time.Minute)
	evt := seedEvent(t, store, "evt")
	c := New(server.URL, nil)
	ctx := context.Background()

	_, err := c.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	stream, err := c.Dial(ctx)
	require.NoError(t, err)
	defer stream.Close()

	view := NewMembershipView(c)
	var mu sync.Mutex
	snapshots := 0
	handle, err := stream.Subscribe(ctx, "user", func(data json.RawMessage) {
		var user entity.User
		if assert.NoError(t, json.Unmarshal(data, &user)) {
			view.ApplySnapshot(&user)
		}
		mu.Lock()
		snapshots++
		mu.Unlock()
	}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, handle.ID())

	_, err = c.ToggleFavorite(ctx, evt.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return view.IsFavorite(evt.ID) }, 2*time.Second, 10*time.Millisecond)

	handle.Cancel()
	handle.Cancel()

	_, err = stream.Subscribe(ctx, "nope", nil, nil)
	assert.Error(t, err)

	mu.Lock()
	assert.GreaterOrEqual(t, snapshots, 2)
	mu.Unlock()
}
