package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/helpers"
	"github.com/joeyave/event-buddy/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

type AuthSettings struct {
	Secret            string
	Issuer            string
	TokenTTL          time.Duration
	RecentLoginWindow time.Duration
	MinPasswordLength int
	BcryptCost        int
}

// AuthService signs users up and in, and turns session tokens back into identities.
// A token's jti is the id of its session document, so signing out revokes the token.
type AuthService struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	settings          AuthSettings
	now               func() time.Time
}

type AuthResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Identity  *entity.Identity `json:"identity"`
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func NewAuthService(userRepository UserRepository, sessionRepository SessionRepository, settings AuthSettings) *AuthService {
	if settings.TokenTTL <= 0 {
		settings.TokenTTL = 30 * 24 * time.Hour
	}
	if settings.RecentLoginWindow <= 0 {
		settings.RecentLoginWindow = 5 * time.Minute
	}
	if settings.MinPasswordLength <= 0 {
		settings.MinPasswordLength = 6
	}
	if settings.BcryptCost == 0 {
		settings.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepository:    userRepository,
		sessionRepository: sessionRepository,
		settings:          settings,
		now:               time.Now,
	}
}

// SignUp creates a regular user and starts a session for it.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*AuthResult, error) {
	email = helpers.NormalizeEmail(email)
	if err := helpers.ValidateRequired(email, password); err != nil {
		return nil, err
	}
	if len(password) < s.settings.MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.settings.BcryptCost)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepository.InsertOne(ctx, entity.User{
		ID:             bson.NewObjectID(),
		Email:          email,
		RoleName:       entity.RoleUser.String(),
		Favorites:      []bson.ObjectID{},
		Participations: []bson.ObjectID{},
		PasswordHash:   string(hash),
		CreatedAt:      s.now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	return s.startSession(ctx, user)
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.checkPassword(ctx, helpers.NormalizeEmail(email), password)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	return s.sessionRepository.DeleteOne(ctx, sessionID)
}

// Authenticate resolves a token to the identity behind it. The role is read from the
// user document, not from the token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*entity.Identity, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return []byte(s.settings.Secret), nil
	}, jwt.WithIssuer(s.settings.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	session, err := s.sessionRepository.FindOneByID(ctx, c.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if session.UserID.Hex() != c.Subject {
		return nil, ErrInvalidSession
	}

	user, err := s.userRepository.FindOneByID(ctx, session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}

	return identityOf(user, session), nil
}

// Reauthenticate proves the identity again with the current password and marks the
// session as recently authenticated.
func (s *AuthService) Reauthenticate(ctx context.Context, identity *entity.Identity, password string) (*entity.Identity, error) {
	user, err := s.checkPassword(ctx, identity.Email, password)
	if err != nil {
		return nil, err
	}
	if user.ID != identity.UserID {
		return nil, ErrInvalidCredentials
	}

	at := s.now().UTC()
	err = s.sessionRepository.UpdateAuthenticatedAt(ctx, identity.SessionID, at)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}

	refreshed := *identity
	refreshed.AuthenticatedAt = at
	return &refreshed, nil
}

// ChangePassword needs a recent login. A stale session is reauthenticated with
// currentPassword when one is given, otherwise ErrReauthenticationRequired is returned.
func (s *AuthService) ChangePassword(ctx context.Context, identity *entity.Identity, newPassword, currentPassword string) error {
	if len(newPassword) < s.settings.MinPasswordLength {
		return ErrWeakPassword
	}

	session, err := s.sessionRepository.FindOneByID(ctx, identity.SessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidSession
	}
	if err != nil {
		return err
	}

	if s.now().Sub(session.AuthenticatedAt) > s.settings.RecentLoginWindow {
		if currentPassword == "" {
			return ErrReauthenticationRequired
		}
		_, err = s.Reauthenticate(ctx, identity, currentPassword)
		if err != nil {
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.settings.BcryptCost)
	if err != nil {
		return err
	}
	return s.userRepository.UpdatePasswordHash(ctx, identity.UserID, string(hash))
}

func (s *AuthService) checkPassword(ctx context.Context, email, password string) (*entity.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepository.FindOneByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) startSession(ctx context.Context, user *entity.User) (*AuthResult, error) {
	now := s.now().UTC()
	session := entity.Session{
		ID:              uuid.New().String(),
		UserID:          user.ID,
		CreatedAt:       now,
		AuthenticatedAt: now,
	}
	err := s.sessionRepository.InsertOne(ctx, session)
	if err != nil {
		return nil, err
	}

	expiresAt := now.Add(s.settings.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    s.settings.Issuer,
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
	})
	signed, err := token.SignedString([]byte(s.settings.Secret))
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:     signed,
		ExpiresAt: expiresAt,
		Identity:  identityOf(user, &session),
	}, nil
}

func identityOf(user *entity.User, session *entity.Session) *entity.Identity {
	return &entity.Identity{
		UserID:          user.ID,
		Email:           user.Email,
		Role:            user.Role(),
		SessionID:       session.ID,
		AuthenticatedAt: session.AuthenticatedAt,
	}
}
