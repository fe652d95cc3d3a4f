package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// maxTxRetries bounds optimistic-lock retries for a single write.
const maxTxRetries = 16

// RedisConfig holds the settings for a RedisStore.
type RedisConfig struct {
	Addr   string
	Prefix string
}

// RedisStore keeps rows in a single Redis hash and announces every
// committed change on a pub/sub channel. Each process listening on the
// channel fans changes out to its own subscribers, so writers in one
// process are seen by engines in every other.
type RedisStore struct {
	*nodeStore
	rows   *redisRows
	cancel context.CancelFunc
	group  *errgroup.Group

	closeOnce sync.Once
	closeErr  error
}

// NewRedisStore connects to Redis, subscribes to the change channel and
// starts the listener. logger may be nil.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", cfg.Addr, err)
	}
	return newRedisStore(ctx, client, cfg.Prefix, logger)
}

func newRedisStore(
	ctx context.Context,
	client *redis.Client,
	prefix string,
	logger *slog.Logger,
) (*RedisStore, error) {
	rows := &redisRows{
		client:  client,
		key:     prefix + "nodes",
		channel: prefix + "changes",
	}
	ns := newNodeStore(rows, logger)

	pubsub := client.Subscribe(ctx, rows.channel)
	// Wait for the subscription to be confirmed so that no change
	// published after this constructor returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		client.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", rows.channel, err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(listenCtx)
	g.Go(func() error {
		return listen(gctx, pubsub, ns)
	})

	return &RedisStore{
		nodeStore: ns,
		rows:      rows,
		cancel:    cancel,
		group:     g,
	}, nil
}

// listen forwards change announcements to the hub until ctx ends.
func listen(ctx context.Context, pubsub *redis.PubSub, ns *nodeStore) error {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ns.hub.notify(ctx, strings.Split(msg.Payload, "\n"))
		}
	}
}

// Close stops the listener, detaches all subscribers and closes the
// Redis client. Later calls return the result of the first.
func (s *RedisStore) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		err := s.group.Wait()
		s.hub.close()
		if cerr := s.rows.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.closeErr = err
	})
	return s.closeErr
}

type redisRows struct {
	client  *redis.Client
	key     string
	channel string
}

func (r *redisRows) read(ctx context.Context, base string) (map[string]string, error) {
	if base == "" {
		all, err := r.client.HGetAll(ctx, r.key).Result()
		if err != nil {
			return nil, fmt.Errorf("reading all nodes: %w", err)
		}
		return all, nil
	}

	out := make(map[string]string)
	leaf, err := r.client.HGet(ctx, r.key, base).Result()
	switch {
	case err == nil:
		out[base] = leaf
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("reading node %s: %w", base, err)
	}

	err = scanSubtree(ctx, r.client, r.key, base, func(field, value string) {
		out[field] = value
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *redisRows) apply(ctx context.Context, muts []mutation) error {
	payload := strings.Join(changedPaths(muts), "\n")

	txf := func(tx *redis.Tx) error {
		var stale []string
		for _, m := range muts {
			if m.path == "" {
				fields, err := tx.HKeys(ctx, r.key).Result()
				if err != nil {
					return fmt.Errorf("listing nodes: %w", err)
				}
				stale = append(stale, fields...)
				continue
			}
			stale = append(stale, m.path)
			if len(m.rows) > 0 {
				stale = append(stale, ancestors(m.path)...)
			}
			err := scanSubtree(ctx, tx, r.key, m.path, func(field, _ string) {
				stale = append(stale, field)
			})
			if err != nil {
				return err
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(stale) > 0 {
				pipe.HDel(ctx, r.key, stale...)
			}
			for _, m := range muts {
				if len(m.rows) == 0 {
					continue
				}
				values := make([]any, 0, 2*len(m.rows))
				for p, v := range m.rows {
					values = append(values, p, v)
				}
				pipe.HSet(ctx, r.key, values...)
			}
			pipe.Publish(ctx, r.channel, payload)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, r.key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("writing %s: too many concurrent writers", payload)
}

// hashScanner is satisfied by both *redis.Client and *redis.Tx.
type hashScanner interface {
	HScan(ctx context.Context, key string, cursor uint64, match string, count int64) *redis.ScanCmd
}

// scanSubtree calls fn for every field strictly below base. Paths never
// contain glob characters, so base can be used in a MATCH pattern as is.
func scanSubtree(
	ctx context.Context,
	c hashScanner,
	key, base string,
	fn func(field, value string),
) error {
	var cursor uint64
	for {
		kv, next, err := c.HScan(ctx, key, cursor, base+"/*", 256).Result()
		if err != nil {
			return fmt.Errorf("scanning %s: %w", base, err)
		}
		for i := 0; i+1 < len(kv); i += 2 {
			fn(kv[i], kv[i+1])
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
