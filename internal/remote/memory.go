package remote

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryStore keeps all rows in process memory. Every subscriber lives in
// the same process, so it suits tests and single-session use.
type MemoryStore struct {
	*nodeStore
	rows *memoryRows
}

// NewMemoryStore returns an empty in-memory store. logger may be nil.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	rows := &memoryRows{rows: make(map[string]string)}
	ns := newNodeStore(rows, logger)
	rows.notify = ns.hub.notify
	return &MemoryStore{nodeStore: ns, rows: rows}
}

// Close detaches all subscribers. Later operations return ErrClosed.
func (s *MemoryStore) Close() error {
	s.rows.close()
	s.hub.close()
	return nil
}

type memoryRows struct {
	mu     sync.RWMutex
	rows   map[string]string
	closed bool
	notify func(ctx context.Context, changed []string)
}

func (m *memoryRows) read(_ context.Context, base string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	out := make(map[string]string)
	for p, v := range m.rows {
		if isWithin(p, base) {
			out[p] = v
		}
	}
	return out, nil
}

func (m *memoryRows) apply(ctx context.Context, muts []mutation) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	for _, mut := range muts {
		for p := range m.rows {
			if isWithin(p, mut.path) {
				delete(m.rows, p)
			}
		}
		if len(mut.rows) == 0 {
			continue
		}
		for _, a := range ancestors(mut.path) {
			delete(m.rows, a)
		}
		for p, v := range mut.rows {
			m.rows[p] = v
		}
	}
	m.mu.Unlock()

	// The write is committed; subscribers must hear about it even if the
	// writer's context has ended.
	m.notify(context.WithoutCancel(ctx), changedPaths(muts))
	return nil
}

func (m *memoryRows) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
