// Package subscription delivers full-state snapshots of a query every time its change
// feed reports a change, until the subscription is cancelled.
package subscription

import (
	"context"
	"errors"
	"sync"

	"github.com/joeyave/event-buddy/entity"
)

var ErrFeedClosed = errors.New("change feed closed")

type WatchFunc func(ctx context.Context) (<-chan entity.Change, error)

type FetchFunc[T any] func(ctx context.Context) (T, error)

// Subscription is the handle of a running snapshot loop.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe opens the change feed, delivers an initial snapshot and then a fresh snapshot
// after every change. Notifications that arrive while a snapshot is being fetched are
// coalesced into one. onSnapshot and onError are called from a single goroutine, in order.
// A failing feed or fetch is reported to onError once and ends the subscription.
func Subscribe[T any](ctx context.Context, watch WatchFunc, fetch FetchFunc[T], onSnapshot func(T), onError func(error)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	fail := func(err error) {
		if ctx.Err() == nil && onError != nil {
			onError(err)
		}
	}

	deliver := func() bool {
		v, err := fetch(ctx)
		if err != nil {
			fail(err)
			return false
		}
		if ctx.Err() != nil {
			return false
		}
		onSnapshot(v)
		return true
	}

	go func() {
		defer close(s.done)
		defer cancel()

		// The feed is opened before the first fetch so no change between them is lost.
		changes, err := watch(ctx)
		if err != nil {
			fail(err)
			return
		}
		if !deliver() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					fail(ErrFeedClosed)
					return
				}
				if change.Err != nil {
					fail(change.Err)
					return
				}
				if !deliver() {
					return
				}
			}
		}
	}()

	return s
}

// Cancel stops the loop and waits for it to exit. It is safe to call more than once,
// but not from inside onSnapshot or onError.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed when the loop has exited, after Cancel or after a failure.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
