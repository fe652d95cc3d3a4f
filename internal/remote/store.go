// Package remote provides the hierarchical document store that task data
// is synchronized through. Documents are addressed by slash-delimited
// paths, and subscribers receive the full subtree at their path whenever
// anything at, above, or below it changes.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("remote store closed")

// Unsubscribe detaches a listener registered with Store.Subscribe.
// It is safe to call more than once.
type Unsubscribe func()

// Store is a hierarchical key-value document store.
//
// Values are JSON-like: map[string]any, []any, string, float64, bool.
// nil, empty maps and empty slices are treated as absent.
type Store interface {
	// Subscribe registers fn for the subtree at path. fn is called once
	// with the current value (nil when absent) and again after every
	// change at, above, or below path. Calls for one subscription are
	// sequential; bursts of changes may be coalesced into the latest value.
	Subscribe(ctx context.Context, path string, fn func(value any)) (Unsubscribe, error)

	// Get returns the current value at path, or nil when absent.
	Get(ctx context.Context, path string) (any, error)

	// Append stores value under a newly generated, time-ordered key
	// beneath path and returns the key.
	Append(ctx context.Context, path string, value any) (string, error)

	// Update replaces each named child of path with the given value,
	// leaving other children untouched. A nil value deletes the child.
	// Field names may themselves be sub-paths.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Remove deletes the document and its subtree at path.
	// Removing an absent path is not an error.
	Remove(ctx context.Context, path string) error

	Close() error
}

// NewKey returns a unique key whose lexical order matches creation order.
func NewKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return id.String(), nil
}

// backend is the flat-row storage primitive behind every Store.
// Each row maps the full path of a leaf to its JSON encoding.
type backend interface {
	// read returns every row at or below base.
	read(ctx context.Context, base string) (map[string]string, error)

	// apply executes the mutations atomically and arranges for the
	// changed paths to reach the hub.
	apply(ctx context.Context, muts []mutation) error
}

// nodeStore implements the Store operations on top of a backend.
// Backends embed it and add Close.
type nodeStore struct {
	backend backend
	hub     *hub
	logger  *slog.Logger
}

func newNodeStore(b backend, logger *slog.Logger) *nodeStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &nodeStore{backend: b, logger: logger}
	s.hub = newHub(s.Get, logger)
	return s
}

// Subscribe implements Store.
func (s *nodeStore) Subscribe(
	ctx context.Context,
	path string,
	fn func(value any),
) (Unsubscribe, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	sub, err := s.hub.add(path, fn)
	if err != nil {
		return nil, err
	}

	seq := s.hub.nextSeq()
	v, err := s.Get(ctx, path)
	if err != nil {
		s.hub.remove(sub.id)
		return nil, fmt.Errorf("subscribing to %s: %w", path, err)
	}
	sub.push(v, seq)

	return func() { s.hub.remove(sub.id) }, nil
}

// Get implements Store.
func (s *nodeStore) Get(ctx context.Context, path string) (any, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	rows, err := s.backend.read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	v, err := unflatten(path, rows)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return v, nil
}

// Append implements Store.
func (s *nodeStore) Append(ctx context.Context, path string, value any) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	key, err := NewKey()
	if err != nil {
		return "", err
	}
	m, err := setMutation(Join(path, key), value)
	if err != nil {
		return "", err
	}
	if err := s.backend.apply(ctx, []mutation{m}); err != nil {
		return "", fmt.Errorf("appending to %s: %w", path, err)
	}
	return key, nil
}

// Update implements Store.
func (s *nodeStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	muts, err := updateMutations(path, fields)
	if err != nil {
		return err
	}
	if len(muts) == 0 {
		return nil
	}
	if err := s.backend.apply(ctx, muts); err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}
	return nil
}

// Remove implements Store.
func (s *nodeStore) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := s.backend.apply(ctx, []mutation{{path: path}}); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// changedPaths lists the root path of each mutation.
func changedPaths(muts []mutation) []string {
	paths := make([]string, len(muts))
	for i, m := range muts {
		paths[i] = m.path
	}
	return paths
}
