package memory

import (
	"context"

	"github.com/joeyave/event-buddy/entity"
)

type watch struct {
	target entity.WatchTarget
	ch     chan entity.Change
}

type Watcher struct {
	s *Store
}

func (w *Watcher) Watch(ctx context.Context, target entity.WatchTarget) (<-chan entity.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan entity.Change, 1)

	w.s.mu.Lock()
	id := w.s.nextWatch
	w.s.nextWatch++
	w.s.watches[id] = &watch{target: target, ch: ch}
	w.s.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.s.mu.Lock()
		delete(w.s.watches, id)
		close(ch)
		w.s.mu.Unlock()
	}()

	return ch, nil
}

// ActiveWatches reports the number of open change feeds.
func (w *Watcher) ActiveWatches() int {
	w.s.mu.RLock()
	defer w.s.mu.RUnlock()
	return len(w.s.watches)
}

// publish notifies every feed watching one of the targets. Callers hold mu for writing.
func (s *Store) publish(targets ...entity.WatchTarget) {
	for _, w := range s.watches {
		for _, t := range targets {
			if w.target == t {
				select {
				case w.ch <- entity.Change{}:
				default:
				}
				break
			}
		}
	}
}

func (s *Store) publishAll() {
	for _, w := range s.watches {
		select {
		case w.ch <- entity.Change{}:
		default:
		}
	}
}
