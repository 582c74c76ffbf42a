// Package client talks to the event-buddy API on behalf of one signed-in user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/helpers"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func IsReauthenticationRequired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "requires-recent-login"
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	identity   *IdentityHolder
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRequestLogging logs every request and response at debug level.
func WithRequestLogging() Option {
	return func(c *Client) {
		c.httpClient.Transport = helpers.NewTransportWithLogger(c.httpClient.Transport)
	}
}

func New(baseURL string, identity *IdentityHolder, opts ...Option) *Client {
	if identity == nil {
		identity = NewIdentityHolder()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		identity:   identity,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Identity() *IdentityHolder {
	return c.identity
}

type AuthResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Identity  *entity.Identity `json:"identity"`
}

// EventView is an event with the caller's membership flags.
type EventView struct {
	entity.Event
	Date           string `json:"date"`
	Favorite       bool   `json:"favorite"`
	Participating  bool   `json:"participating"`
	CanParticipate bool   `json:"canParticipate"`
}

type CreateEventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Time        time.Time `json:"time"`
	ImageURL    string    `json:"imageUrl"`
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/api/auth/signup", email, password)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/api/auth/signin", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*Session, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, path, map[string]string{"email": email, "password": password}, &res)
	if err != nil {
		return nil, err
	}

	session := &Session{Token: res.Token, ExpiresAt: res.ExpiresAt, Identity: res.Identity}
	c.identity.Set(session)
	return session, nil
}

// SignOut ends the session on the server and clears the local identity either way.
func (c *Client) SignOut(ctx context.Context) error {
	defer c.identity.Clear()
	return c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
}

func (c *Client) Reauthenticate(ctx context.Context, password string) error {
	var res struct {
		Identity *entity.Identity `json:"identity"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/reauthenticate", map[string]string{"password": password}, &res)
	if err != nil {
		return err
	}
	if current := c.identity.Current(); current != nil && res.Identity != nil {
		refreshed := *current
		refreshed.Identity = res.Identity
		c.identity.Set(&refreshed)
	}
	return nil
}

// ChangePassword sends currentPassword only when it is not empty. The server answers
// with a requires-recent-login error if the session is stale and no password was given.
func (c *Client) ChangePassword(ctx context.Context, newPassword, currentPassword string) error {
	body := map[string]string{"newPassword": newPassword}
	if currentPassword != "" {
		body["currentPassword"] = currentPassword
	}
	return c.do(ctx, http.MethodPut, "/api/me/password", body, nil)
}

func (c *Client) Me(ctx context.Context) (*entity.User, error) {
	var res struct {
		User *entity.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/me", nil, &res)
	return res.User, err
}

func (c *Client) Navigation(ctx context.Context) ([]string, error) {
	var res struct {
		Tabs []string `json:"tabs"`
	}
	err := c.do(ctx, http.MethodGet, "/api/me/navigation", nil, &res)
	return res.Tabs, err
}

func (c *Client) Events(ctx context.Context, query, lang string) ([]*EventView, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	if lang != "" {
		params.Set("lang", lang)
	}
	path := "/api/events"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var res struct {
		Events []*EventView `json:"events"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &res)
	return res.Events, err
}

func (c *Client) Event(ctx context.Context, eventID bson.ObjectID, lang string) (*EventView, error) {
	path := "/api/events/" + eventID.Hex()
	if lang != "" {
		path += "?lang=" + url.QueryEscape(lang)
	}

	var res struct {
		Event *EventView `json:"event"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &res)
	return res.Event, err
}

func (c *Client) Participants(ctx context.Context, eventID bson.ObjectID) ([]*entity.Participant, error) {
	var res struct {
		Participants []*entity.Participant `json:"participants"`
	}
	err := c.do(ctx, http.MethodGet, "/api/events/"+eventID.Hex()+"/participants", nil, &res)
	return res.Participants, err
}

func (c *Client) CreateEvent(ctx context.Context, input CreateEventInput) (*entity.Event, error) {
	var res struct {
		Event *entity.Event `json:"event"`
	}
	err := c.do(ctx, http.MethodPost, "/api/events", input, &res)
	return res.Event, err
}

func (c *Client) ToggleFavorite(ctx context.Context, eventID bson.ObjectID) (bool, error) {
	var res struct {
		Favorite bool `json:"favorite"`
	}
	err := c.do(ctx, http.MethodPost, "/api/events/"+eventID.Hex()+"/favorite", nil, &res)
	return res.Favorite, err
}

func (c *Client) ToggleParticipation(ctx context.Context, eventID bson.ObjectID) (bool, error) {
	var res struct {
		Participating bool `json:"participating"`
	}
	err := c.do(ctx, http.MethodPost, "/api/events/"+eventID.Hex()+"/participation", nil, &res)
	return res.Participating, err
}

func (c *Client) SetFavorite(ctx context.Context, eventID bson.ObjectID, favorite bool) error {
	return c.do(ctx, desiredMethod(favorite), "/api/me/favorites/"+eventID.Hex(), nil, nil)
}

func (c *Client) SetParticipation(ctx context.Context, eventID bson.ObjectID, participating bool) error {
	return c.do(ctx, desiredMethod(participating), "/api/me/participations/"+eventID.Hex(), nil, nil)
}

func (c *Client) Favorites(ctx context.Context) ([]*entity.Event, error) {
	var res struct {
		Events []*entity.Event `json:"events"`
	}
	err := c.do(ctx, http.MethodGet, "/api/me/favorites", nil, &res)
	return res.Events, err
}

func (c *Client) Participations(ctx context.Context) ([]*entity.Event, error) {
	var res struct {
		Events []*entity.Event `json:"events"`
	}
	err := c.do(ctx, http.MethodGet, "/api/me/participations", nil, &res)
	return res.Events, err
}

func desiredMethod(on bool) string {
	if on {
		return http.MethodPut
	}
	return http.MethodDelete
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session := c.identity.Current(); session != nil {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
