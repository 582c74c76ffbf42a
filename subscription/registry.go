package subscription

import "sync"

// Registry keeps the running subscriptions by id. Entries are released when the
// subscription is cancelled or ends on its own.
type Registry struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewRegistry() *Registry {
	return &Registry{subs: map[string]*Subscription{}}
}

func (r *Registry) Track(id string, s *Subscription) {
	r.mu.Lock()
	r.subs[id] = s
	r.mu.Unlock()

	go func() {
		<-s.Done()
		r.mu.Lock()
		if r.subs[id] == s {
			delete(r.subs, id)
		}
		r.mu.Unlock()
	}()
}

// Cancel cancels the subscription and reports whether it was tracked.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	s, ok := r.subs[id]
	delete(r.subs, id)
	r.mu.Unlock()

	if ok {
		s.Cancel()
	}
	return ok
}

func (r *Registry) CancelAll() {
	r.mu.Lock()
	subs := r.subs
	r.subs = map[string]*Subscription{}
	r.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
}

func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
