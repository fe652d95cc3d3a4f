package remote

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// subscriber holds one listener and a single-slot mailbox with the
// newest value not yet delivered.
type subscriber struct {
	id   uint64
	path string
	fn   func(any)

	mu      sync.Mutex
	latest  any
	seq     uint64
	pending bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// push stores v for delivery unless a value read later is already queued
// or delivered. seq orders reads: a higher seq was started after a lower one.
func (s *subscriber) push(v any, seq uint64) {
	s.mu.Lock()
	if seq <= s.seq {
		s.mu.Unlock()
		return
	}
	s.latest = v
	s.seq = seq
	s.pending = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		v, ok := s.latest, s.pending
		s.pending = false
		s.mu.Unlock()
		if !ok {
			continue
		}

		select {
		case <-s.done:
			return
		default:
		}
		s.fn(v)
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// hub fans changes out to subscribers whose path overlaps a changed path.
type hub struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool

	seq    atomic.Uint64
	read   func(ctx context.Context, path string) (any, error)
	logger *slog.Logger
}

func newHub(read func(ctx context.Context, path string) (any, error), logger *slog.Logger) *hub {
	return &hub{
		subs:   make(map[uint64]*subscriber),
		read:   read,
		logger: logger,
	}
}

func (h *hub) nextSeq() uint64 {
	return h.seq.Add(1)
}

func (h *hub) add(path string, fn func(any)) (*subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	h.nextID++
	sub := &subscriber{
		id:   h.nextID,
		path: path,
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	h.subs[sub.id] = sub
	go sub.run()

	h.logger.Debug("subscriber added", "id", sub.id, "path", path)
	return sub, nil
}

func (h *hub) remove(id uint64) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()

	if ok {
		sub.stop()
		h.logger.Debug("subscriber removed", "id", id, "path", sub.path)
	}
}

// notify re-reads the subtree of every subscriber affected by a change
// at any of the given paths and queues it for delivery.
func (h *hub) notify(ctx context.Context, changed []string) {
	h.mu.Lock()
	affected := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		for _, p := range changed {
			if overlaps(sub.path, p) {
				affected = append(affected, sub)
				break
			}
		}
	}
	h.mu.Unlock()

	for _, sub := range affected {
		seq := h.nextSeq()
		v, err := h.read(ctx, sub.path)
		if err != nil {
			h.logger.Warn("reading subtree for subscriber", "path", sub.path, "error", err)
			continue
		}
		sub.push(v, seq)
	}
}

func (h *hub) close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*subscriber)
	h.closed = true
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}
