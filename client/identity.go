package client

import (
	"sync"
	"time"

	"github.com/joeyave/event-buddy/entity"
)

// Session is what a successful sign-in leaves on the client.
type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Identity  *entity.Identity `json:"identity"`
}

// IdentityHolder is the single place the current session lives. Consumers read it with
// Current or follow it with Subscribe.
type IdentityHolder struct {
	mu        sync.Mutex
	current   *Session
	listeners map[int]func(*Session)
	next      int
}

func NewIdentityHolder() *IdentityHolder {
	return &IdentityHolder{listeners: map[int]func(*Session){}}
}

func (h *IdentityHolder) Current() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *IdentityHolder) Set(session *Session) {
	h.publish(session)
}

func (h *IdentityHolder) Clear() {
	h.publish(nil)
}

// Subscribe calls fn with the current session and again on every change until the
// returned cancel func is called.
func (h *IdentityHolder) Subscribe(fn func(*Session)) (cancel func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = fn
	current := h.current
	h.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

func (h *IdentityHolder) publish(session *Session) {
	h.mu.Lock()
	h.current = session
	listeners := make([]func(*Session), 0, len(h.listeners))
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(session)
	}
}
