package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrStreamClosed = errors.New("stream closed")

type streamMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

type streamRequest struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	ID    string `json:"id,omitempty"`
}

// Stream is one websocket connection carrying any number of live subscriptions.
type Stream struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string][]*Handle
	active  map[string]*Handle
	closed  bool
	done    chan struct{}
}

// Handle is one subscription on a stream.
type Handle struct {
	stream     *Stream
	topic      string
	onSnapshot func(json.RawMessage)
	onError    func(error)
	ready      chan error
	once       sync.Once

	mu        sync.Mutex
	id        string
	cancelled bool
}

// Dial opens a stream to the API's websocket endpoint with the holder's token.
func (c *Client) Dial(ctx context.Context) (*Stream, error) {
	u, err := url.Parse(c.baseURL + "/api/ws")
	if err != nil {
		return nil, err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)

	header := http.Header{}
	if session := c.identity.Current(); session != nil {
		header.Set("Authorization", "Bearer "+session.Token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, err
	}

	s := &Stream{
		conn:    conn,
		pending: map[string][]*Handle{},
		active:  map[string]*Handle{},
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Subscribe asks for a topic and waits until the server accepts or rejects it.
// Snapshots are delivered on the stream's read goroutine.
func (s *Stream) Subscribe(ctx context.Context, topic string, onSnapshot func(json.RawMessage), onError func(error)) (*Handle, error) {
	h := &Handle{
		stream:     s,
		topic:      topic,
		onSnapshot: onSnapshot,
		onError:    onError,
		ready:      make(chan error, 1),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStreamClosed
	}
	s.pending[topic] = append(s.pending[topic], h)
	s.mu.Unlock()

	err := s.write(streamRequest{Type: "subscribe", Topic: topic})
	if err != nil {
		return nil, err
	}

	select {
	case err := <-h.ready:
		if err != nil {
			return nil, err
		}
		return h, nil
	case <-ctx.Done():
		h.Cancel()
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrStreamClosed
	}
}

// Cancel releases the subscription. It is safe to call more than once.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.mu.Lock()
		h.cancelled = true
		id := h.id
		h.mu.Unlock()

		if id == "" {
			return
		}
		h.stream.mu.Lock()
		delete(h.stream.active, id)
		h.stream.mu.Unlock()
		_ = h.stream.write(streamRequest{Type: "unsubscribe", ID: id})
	})
}

func (h *Handle) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id
}

// Close ends the connection and every subscription on it.
func (s *Stream) Close() error {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()
	err := s.conn.Close()
	<-s.done
	return err
}

// Done is closed when the connection is gone.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

func (s *Stream) write(req streamRequest) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(req)
}

func (s *Stream) readLoop() {
	defer s.shutdown()

	for {
		var msg streamMessage
		err := s.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("stream read failed")
			}
			return
		}

		switch msg.Type {
		case "subscribed":
			h := s.popPending(msg.Topic)
			if h == nil {
				continue
			}
			h.mu.Lock()
			h.id = msg.ID
			cancelled := h.cancelled
			h.mu.Unlock()
			if cancelled {
				_ = s.write(streamRequest{Type: "unsubscribe", ID: msg.ID})
				continue
			}
			s.mu.Lock()
			s.active[msg.ID] = h
			s.mu.Unlock()
			h.ready <- nil
		case "snapshot":
			s.mu.Lock()
			h := s.active[msg.ID]
			s.mu.Unlock()
			if h != nil && h.onSnapshot != nil {
				h.onSnapshot(msg.Data)
			}
		case "error":
			err := errors.New(msg.Message)
			if msg.ID == "" {
				if h := s.popPending(msg.Topic); h != nil {
					h.ready <- err
				}
				continue
			}
			s.mu.Lock()
			h := s.active[msg.ID]
			delete(s.active, msg.ID)
			s.mu.Unlock()
			if h != nil && h.onError != nil {
				h.onError(err)
			}
		}
	}
}

func (s *Stream) popPending(topic string) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.pending[topic]
	if len(queue) == 0 {
		return nil
	}
	h := queue[0]
	if len(queue) == 1 {
		delete(s.pending, topic)
	} else {
		s.pending[topic] = queue[1:]
	}
	return h
}

func (s *Stream) shutdown() {
	s.mu.Lock()
	s.closed = true
	active := s.active
	s.active = map[string]*Handle{}
	s.pending = map[string][]*Handle{}
	s.mu.Unlock()

	close(s.done)
	for _, h := range active {
		if h.onError != nil {
			h.onError(ErrStreamClosed)
		}
	}
}
