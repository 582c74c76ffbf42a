package service

import (
	"context"
	"testing"
	"time"

	"github.com/joeyave/event-buddy/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newAuthService(f *fixture) (*AuthService, *clock) {
	c := &clock{t: time.Now()}
	s := NewAuthService(f.users, f.sessions, AuthSettings{
		Secret:            "test-secret",
		Issuer:            "event-buddy-test",
		TokenTTL:          time.Hour,
		RecentLoginWindow: 5 * time.Minute,
		MinPasswordLength: 6,
		BcryptCost:        bcrypt.MinCost,
	})
	s.now = c.now
	return s, c
}

func TestSignUpAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	s, _ := newAuthService(f)
	ctx := context.Background()

	res, err := s.SignUp(ctx, " Alice@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", res.Identity.Email)
	assert.Equal(t, entity.RoleUser, res.Identity.Role)

	identity, err := s.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Identity.UserID, identity.UserID)
	assert.Equal(t, res.Identity.SessionID, identity.SessionID)

	user, err := f.users.FindOneByID(ctx, identity.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.Empty(t, user.Favorites)
	assert.Empty(t, user.Participations)
}

func TestSignUp_Rejects(t *testing.T) {
	f := newFixture(t)
	s, _ := newAuthService(f)
	ctx := context.Background()

	_, err := s.SignUp(ctx, "a@example.com", "12345")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = s.SignUp(ctx, "a@example.com", "123456")
	require.NoError(t, err)

	_, err = s.SignUp(ctx, "A@example.com", "abcdef")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignIn(t *testing.T) {
	f := newFixture(t)
	s, _ := newAuthService(f)
	ctx := context.Background()

	_, err := s.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	_, err = s.SignIn(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := s.SignIn(ctx, "A@EXAMPLE.COM", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestSignOut_RevokesToken(t *testing.T) {
	f := newFixture(t)
	s, _ := newAuthService(f)
	ctx := context.Background()

	res, err := s.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx, res.Identity.SessionID))

	_, err = s.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestAuthenticate_RejectsForeignTokens(t *testing.T) {
	f := newFixture(t)
	s, _ := newAuthService(f)
	ctx := context.Background()

	res, err := s.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	other := NewAuthService(f.users, f.sessions, AuthSettings{Secret: "other-secret", Issuer: "event-buddy-test", BcryptCost: bcrypt.MinCost})
	_, err = other.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = s.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestAuthenticate_ReadsCurrentRole(t *testing.T) {
	f := newFixture(t)
	s, _ := newAuthService(f)
	ctx := context.Background()

	res, err := s.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.users.UpdateRole(ctx, res.Identity.UserID, entity.RoleAdmin))

	identity, err := s.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin())
}

func TestChangePassword_RecentLogin(t *testing.T) {
	f := newFixture(t)
	s, _ := newAuthService(f)
	ctx := context.Background()

	res, err := s.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, s.ChangePassword(ctx, res.Identity, "123", ""), ErrWeakPassword)
	require.NoError(t, s.ChangePassword(ctx, res.Identity, "secret2", ""))

	_, err = s.SignIn(ctx, "a@example.com", "secret2")
	assert.NoError(t, err)
}

func TestChangePassword_StaleSessionNeedsReauthentication(t *testing.T) {
	f := newFixture(t)
	s, c := newAuthService(f)
	ctx := context.Background()

	res, err := s.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	c.t = c.t.Add(10 * time.Minute)

	assert.ErrorIs(t, s.ChangePassword(ctx, res.Identity, "secret2", ""), ErrReauthenticationRequired)
	assert.ErrorIs(t, s.ChangePassword(ctx, res.Identity, "secret2", "wrong-password"), ErrInvalidCredentials)

	require.NoError(t, s.ChangePassword(ctx, res.Identity, "secret2", "secret1"))
	_, err = s.SignIn(ctx, "a@example.com", "secret2")
	assert.NoError(t, err)
}

func TestReauthenticate_RefreshesSession(t *testing.T) {
	f := newFixture(t)
	s, c := newAuthService(f)
	ctx := context.Background()

	res, err := s.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	c.t = c.t.Add(time.Hour / 2)
	assert.ErrorIs(t, s.ChangePassword(ctx, res.Identity, "secret2", ""), ErrReauthenticationRequired)

	_, err = s.Reauthenticate(ctx, res.Identity, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	refreshed, err := s.Reauthenticate(ctx, res.Identity, "secret1")
	require.NoError(t, err)
	assert.True(t, refreshed.AuthenticatedAt.After(res.Identity.AuthenticatedAt))

	assert.NoError(t, s.ChangePassword(ctx, refreshed, "secret2", ""))
}
