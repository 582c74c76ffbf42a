package controller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/helpers"
	"github.com/joeyave/event-buddy/service"
	"github.com/rs/zerolog/log"
)

// Stream message types.
const (
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
	MessageSubscribed  = "subscribed"
	MessageSnapshot    = "snapshot"
	MessageError       = "error"
)

type StreamRequest struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	ID    string `json:"id,omitempty"`
}

type StreamMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type WsController struct {
	SubscriptionService *service.SubscriptionService
	WriteTimeout        time.Duration
	PingInterval        time.Duration

	upgrader websocket.Upgrader
}

func NewWsController(subscriptionService *service.SubscriptionService, writeTimeout, pingInterval time.Duration) *WsController {
	return &WsController{
		SubscriptionService: subscriptionService,
		WriteTimeout:        writeTimeout,
		PingInterval:        pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin: connections authenticate with a token, not cookies.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and runs the connection until either side closes it.
// Every subscription made over the connection is cancelled when it ends.
func (c *WsController) Serve(ctx *gin.Context) {
	identity := identityFrom(ctx)

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := &wsSession{
		controller: c,
		conn:       conn,
		identity:   identity,
		send:       make(chan StreamMessage, 64),
		ids:        map[string]string{},
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.run()
}

type wsSession struct {
	controller *WsController
	conn       *websocket.Conn
	identity   *entity.Identity
	send       chan StreamMessage

	ctx    context.Context
	cancel context.CancelFunc

	// mu orders the "subscribed" message before the first snapshot of a subscription.
	mu  sync.Mutex
	ids map[string]string
}

func (s *wsSession) run() {
	defer s.conn.Close()

	go s.writeLoop()
	s.readLoop()

	s.cancel()

	s.mu.Lock()
	ids := s.ids
	s.ids = map[string]string{}
	s.mu.Unlock()

	for id := range ids {
		s.controller.SubscriptionService.Unsubscribe(id)
	}
	log.Debug().Str("userId", s.identity.UserID.Hex()).Int("subscriptions", len(ids)).Msg("websocket closed")
}

func (s *wsSession) readLoop() {
	s.conn.SetReadLimit(helpers.WsReadLimit)
	readTimeout := 2 * s.controller.pingInterval()
	_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var req StreamRequest
		err := s.conn.ReadJSON(&req)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch req.Type {
		case MessageSubscribe:
			s.subscribe(req.Topic)
		case MessageUnsubscribe:
			s.mu.Lock()
			_, ok := s.ids[req.ID]
			delete(s.ids, req.ID)
			s.mu.Unlock()
			if ok {
				s.controller.SubscriptionService.Unsubscribe(req.ID)
			}
		default:
			s.push(StreamMessage{Type: MessageError, Message: "unknown message type"})
		}
	}
}

func (s *wsSession) subscribe(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.controller.SubscriptionService.Subscribe(s.ctx, s.identity, topic,
		func(id string, data any) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.push(StreamMessage{Type: MessageSnapshot, ID: id, Topic: topic, Data: data})
		},
		func(id string, err error) {
			log.Error().Err(err).Str("topic", topic).Str("id", id).Msg("subscription failed")
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.ids, id)
			s.push(StreamMessage{Type: MessageError, ID: id, Topic: topic, Message: helpers.SomethingWentWrong})
		},
	)
	if err != nil {
		_, message, _ := classify(err, "")
		if errors.Is(err, service.ErrUnknownTopic) {
			message = err.Error()
		}
		s.push(StreamMessage{Type: MessageError, Topic: topic, Message: message})
		return
	}

	s.ids[id] = topic
	s.push(StreamMessage{Type: MessageSubscribed, ID: id, Topic: topic})
}

// push queues a message unless the connection is going away.
func (s *wsSession) push(msg StreamMessage) {
	select {
	case s.send <- msg:
	case <-s.ctx.Done():
	}
}

func (s *wsSession) writeLoop() {
	defer s.cancel()

	ticker := time.NewTicker(s.controller.pingInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.controller.writeTimeout()))
			if err := s.conn.WriteJSON(msg); err != nil {
				log.Warn().Err(err).Msg("websocket write failed")
				// Unblocks the read loop.
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.controller.writeTimeout()))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.conn.Close()
				return
			}
		}
	}
}

func (c *WsController) writeTimeout() time.Duration {
	if c.WriteTimeout <= 0 {
		return 10 * time.Second
	}
	return c.WriteTimeout
}

func (c *WsController) pingInterval() time.Duration {
	if c.PingInterval <= 0 {
		return 30 * time.Second
	}
	return c.PingInterval
}
