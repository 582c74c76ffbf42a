package memory

import "context"

// Transactor serializes transactions and restores the previous state when fn fails.
// Writes made outside a transaction are not isolated from it.
type Transactor struct {
	s *Store
}

func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.RLock()
	before := t.s.snapshot()
	t.s.mu.RUnlock()

	err := fn(ctx)
	if err != nil {
		t.s.mu.Lock()
		t.s.restore(before)
		t.s.publishAll()
		t.s.mu.Unlock()
	}
	return err
}
