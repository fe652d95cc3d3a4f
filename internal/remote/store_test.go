package remote

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitTimeout = 2 * time.Second
	waitTick    = 5 * time.Millisecond
)

// redisAddr is where the Redis-backed tests look for a server. They are
// skipped when nothing answers there.
func redisAddr() string {
	if addr := os.Getenv("TASKSYNC_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// newRedisTestStore connects a RedisStore under prefix, skipping the test
// when Redis is not reachable. The prefix's keys are removed on cleanup.
func newRedisTestStore(t *testing.T, prefix string) *RedisStore {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	s, err := NewRedisStore(ctx, RedisConfig{Addr: redisAddr(), Prefix: prefix}, nil)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", redisAddr(), err)
	}

	t.Cleanup(func() {
		s.rows.client.Del(context.Background(), s.rows.key)
		if err := s.Close(); err != nil {
			t.Errorf("closing redis store: %v", err)
		}
	})
	return s
}

type storeFactory func(t *testing.T) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store {
			s := NewMemoryStore(nil)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(":memory:", nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"redis": func(t *testing.T) Store {
			return newRedisTestStore(t, "tasksync-test:"+uuid.NewString()+":")
		},
	}
}

// forEachBackend runs fn against a fresh store of every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

// recorder collects the values delivered to a subscription.
type recorder struct {
	mu     sync.Mutex
	values []any
}

func (r *recorder) record(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func (r *recorder) last() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return nil
	}
	return r.values[len(r.values)-1]
}

func subscribe(t *testing.T, s Store, path string) *recorder {
	t.Helper()
	rec := &recorder{}
	unsub, err := s.Subscribe(context.Background(), path, rec.record)
	require.NoError(t, err)
	t.Cleanup(unsub)
	require.Eventually(t, func() bool { return rec.count() > 0 }, waitTimeout, waitTick)
	return rec
}

func TestStoreGetAbsent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		v, err := s.Get(context.Background(), "tasks/nobody")
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestStoreAppendOrdersKeys(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		var keys []string
		for _, text := range []string{"first", "second", "third"} {
			key, err := s.Append(ctx, "tasks/u1", map[string]any{"text": text})
			require.NoError(t, err)
			keys = append(keys, key)
		}
		assert.True(t, keys[0] < keys[1] && keys[1] < keys[2], "keys sort in creation order: %v", keys)

		v, err := s.Get(ctx, "tasks/u1")
		require.NoError(t, err)
		docs, ok := v.(map[string]any)
		require.True(t, ok)
		require.Len(t, docs, 3)
		assert.Equal(t, map[string]any{"text": "second"}, docs[keys[1]])
	})
}

func TestStoreUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		path := "tasks/u1/t1"

		require.NoError(t, s.Update(ctx, path, map[string]any{
			"text":      "Draft",
			"completed": false,
			"subtasks": []any{
				map[string]any{"id": "1", "text": "a"},
				map[string]any{"id": "2", "text": "b"},
				map[string]any{"id": "3", "text": "c"},
			},
		}))

		require.NoError(t, s.Update(ctx, path, map[string]any{
			"completed":   true,
			"completedAt": "2024-01-01T00:00:00.000Z",
			"subtasks":    []any{map[string]any{"id": "9", "text": "only"}},
		}))

		v, err := s.Get(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"text":        "Draft",
			"completed":   true,
			"completedAt": "2024-01-01T00:00:00.000Z",
			"subtasks":    []any{map[string]any{"id": "9", "text": "only"}},
		}, v)

		require.NoError(t, s.Update(ctx, path, map[string]any{
			"completedAt":  nil,
			"subtasks":     []any{},
			"text/ignored": nil,
		}))
		v, err = s.Get(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"text": "Draft", "completed": true}, v)
	})
}

func TestStoreUpdateSubPathReplacesScalar(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		require.NoError(t, s.Update(ctx, "doc", map[string]any{"x": "leaf"}))
		require.NoError(t, s.Update(ctx, "doc", map[string]any{"x/y": 1}))

		v, err := s.Get(ctx, "doc/x")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"y": 1.0}, v)

		require.NoError(t, s.Update(ctx, "doc", map[string]any{"x": "leaf again"}))
		v, err = s.Get(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"x": "leaf again"}, v)
	})
}

func TestStoreRejectsBadInput(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Get(ctx, "tasks//u1")
		assert.ErrorIs(t, err, ErrInvalidPath)

		_, err = s.Append(ctx, "tasks/u.1", "x")
		assert.ErrorIs(t, err, ErrInvalidPath)

		err = s.Update(ctx, "doc", map[string]any{"a": 1, "a/b": 2})
		assert.ErrorIs(t, err, ErrInvalidPath)

		_, err = s.Subscribe(ctx, "bad#path", func(any) {})
		assert.ErrorIs(t, err, ErrInvalidPath)
	})
}

func TestStoreRemove(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		require.NoError(t, s.Update(ctx, "tasks/u1", map[string]any{
			"t1": map[string]any{"text": "one", "subtasks": []any{map[string]any{"id": "1"}}},
			"t2": map[string]any{"text": "two"},
		}))
		require.NoError(t, s.Update(ctx, "tasks/u10", map[string]any{
			"t1": map[string]any{"text": "neighbour"},
		}))

		require.NoError(t, s.Remove(ctx, "tasks/u1/t1"))
		require.NoError(t, s.Remove(ctx, "tasks/u1/missing"))

		v, err := s.Get(ctx, "tasks/u1")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"t2": map[string]any{"text": "two"}}, v)

		require.NoError(t, s.Remove(ctx, "tasks/u1"))
		v, err = s.Get(ctx, "tasks/u1")
		require.NoError(t, err)
		assert.Nil(t, v)

		v, err = s.Get(ctx, "tasks/u10/t1/text")
		require.NoError(t, err)
		assert.Equal(t, "neighbour", v)
	})
}

func TestStoreSubscribe(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		rec := subscribe(t, s, "tasks/u1")
		assert.Nil(t, rec.last(), "first delivery is the current, absent value")

		key, err := s.Append(ctx, "tasks/u1", map[string]any{"text": "hello"})
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return assert.ObjectsAreEqual(map[string]any{
				key: map[string]any{"text": "hello"},
			}, rec.last())
		}, waitTimeout, waitTick)

		require.NoError(t, s.Update(ctx, "tasks/u1/"+key, map[string]any{"text": "edited"}))
		require.Eventually(t, func() bool {
			return assert.ObjectsAreEqual(map[string]any{
				key: map[string]any{"text": "edited"},
			}, rec.last())
		}, waitTimeout, waitTick)

		require.NoError(t, s.Remove(ctx, "tasks"))
		require.Eventually(t, func() bool { return rec.last() == nil }, waitTimeout, waitTick)
	})
}

// TestStoreNotifiesAfterWriterContextEnds cancels the writer's context
// between commit and fan-out. Subscribers must still see the write.
func TestStoreNotifiesAfterWriterContextEnds(t *testing.T) {
	type local struct {
		store  Store
		notify *func(ctx context.Context, changed []string)
	}
	locals := map[string]func(t *testing.T) local{
		"memory": func(t *testing.T) local {
			s := NewMemoryStore(nil)
			t.Cleanup(func() { _ = s.Close() })
			return local{store: s, notify: &s.rows.notify}
		},
		"sqlite": func(t *testing.T) local {
			s, err := NewSQLiteStore(":memory:", nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return local{store: s, notify: &s.rows.notify}
		},
	}

	for name, open := range locals {
		t.Run(name, func(t *testing.T) {
			l := open(t)
			rec := subscribe(t, l.store, "tasks/u1")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			fanOut := *l.notify
			*l.notify = func(nctx context.Context, changed []string) {
				cancel()
				fanOut(nctx, changed)
			}

			require.NoError(t, l.store.Update(ctx, "tasks/u1/t1", map[string]any{"text": "Buy milk"}))
			require.Error(t, ctx.Err())

			require.Eventually(t, func() bool {
				return assert.ObjectsAreEqual(map[string]any{
					"t1": map[string]any{"text": "Buy milk"},
				}, rec.last())
			}, waitTimeout, waitTick)
		})
	}
}

func TestStoreSubscribeIgnoresUnrelatedPaths(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		rec := subscribe(t, s, "tasks/u1")
		seen := rec.count()

		require.NoError(t, s.Update(ctx, "tasks/u2", map[string]any{"t": "other"}))
		require.NoError(t, s.Update(ctx, "tasks/u10", map[string]any{"t": "other"}))

		assert.Never(t, func() bool { return rec.count() != seen }, 100*time.Millisecond, waitTick)
	})
}

func TestStoreUnsubscribe(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		rec := &recorder{}
		unsub, err := s.Subscribe(ctx, "tasks/u1", rec.record)
		require.NoError(t, err)
		require.Eventually(t, func() bool { return rec.count() == 1 }, waitTimeout, waitTick)

		unsub()
		unsub()

		_, err = s.Append(ctx, "tasks/u1", "x")
		require.NoError(t, err)
		assert.Never(t, func() bool { return rec.count() > 1 }, 100*time.Millisecond, waitTick)
	})
}

func TestStoreSubscribeAfterClose(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			require.NoError(t, s.Close())

			_, err := s.Subscribe(context.Background(), "tasks", func(any) {})
			assert.Error(t, err)
		})
	}
}

// Writers in one process reach subscribers in another through the change
// channel.
func TestRedisStoreFansOutAcrossClients(t *testing.T) {
	prefix := "tasksync-test:" + uuid.NewString() + ":"
	writer := newRedisTestStore(t, prefix)
	reader := newRedisTestStore(t, prefix)

	rec := subscribe(t, reader, "tasks/u1")

	key, err := writer.Append(context.Background(), "tasks/u1", map[string]any{"text": "remote"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(map[string]any{
			key: map[string]any{"text": "remote"},
		}, rec.last())
	}, waitTimeout, waitTick)
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, RedisConfig{Addr: "127.0.0.1:1", Prefix: "x:"}, nil)
	assert.Error(t, err)
}
