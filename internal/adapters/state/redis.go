package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/redis/go-redis/v9"
)

// maxWatchRetries bounds optimistic transaction retries in Patch.
const maxWatchRetries = 5

// RedisStore implements core.CheckpointStore on Redis. Each run is one key;
// a sorted set indexes runs by creation time.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	ownClient bool
	locks     *runLocks
}

// RedisStoreOption configures the store.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix namespaces every key written by the store.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTerminalTTL expires checkpoints of finished runs after ttl.
func WithTerminalTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore wraps an existing client. The caller keeps ownership.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "research:",
		locks:  newRunLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DialRedisStore connects to addr and verifies the connection.
func DialRedisStore(ctx context.Context, opts *redis.Options, storeOpts ...RedisStoreOption) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	s := NewRedisStore(client, storeOpts...)
	s.ownClient = true
	return s, nil
}

func (s *RedisStore) key(runID string) string {
	return s.prefix + "run:" + runID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "runs"
}

func (s *RedisStore) expiry(cp *core.Checkpoint) time.Duration {
	if s.ttl > 0 && cp.Status.IsTerminal() {
		return s.ttl
	}
	return 0
}

// Create stores a new checkpoint with SETNX.
func (s *RedisStore) Create(ctx context.Context, cp *core.Checkpoint) error {
	next, err := prepareCreate(cp)
	if err != nil {
		return err
	}
	data, err := encodeEnvelope(next)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(next.RunID), data, s.expiry(next)).Result()
	if err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if !ok {
		return errRunExists(next.RunID)
	}
	err = s.client.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(next.CreatedAt.UnixNano()),
		Member: next.RunID,
	}).Err()
	if err != nil {
		return fmt.Errorf("indexing checkpoint: %w", err)
	}
	return nil
}

// Read loads the checkpoint.
func (s *RedisStore) Read(ctx context.Context, runID string) (*core.Checkpoint, error) {
	return s.get(ctx, s.client, runID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) get(ctx context.Context, g getter, runID string) (*core.Checkpoint, error) {
	data, err := g.Get(ctx, s.key(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrRunMissing(runID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	return decodeEnvelope(data)
}

// Patch runs mutate inside WATCH/MULTI so writers from other processes
// cannot interleave.
func (s *RedisStore) Patch(ctx context.Context, runID string, expected core.Stage, mutate func(*core.Checkpoint) error) (*core.Checkpoint, error) {
	unlock := s.locks.lock(runID)
	defer unlock()

	key := s.key(runID)
	var result *core.Checkpoint
	txf := func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, runID)
		if err != nil {
			return err
		}
		next, err := applyPatch(current, expected, mutate)
		if err != nil {
			return err
		}
		data, err := encodeEnvelope(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.expiry(next))
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, core.ErrConflict(fmt.Sprintf("run %s kept changing during patch", runID))
}

// Delete removes the checkpoint and its index entry.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	unlock := s.locks.lock(runID)
	defer unlock()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(runID))
		pipe.ZRem(ctx, s.indexKey(), runID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

// List returns runs newest first. Expired runs are pruned from the index.
func (s *RedisStore) List(ctx context.Context) ([]core.CheckpointSummary, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	out := make([]core.CheckpointSummary, 0, len(ids))
	for _, id := range ids {
		cp, err := s.Read(ctx, id)
		if errors.Is(err, core.ErrRunNotFound) {
			_ = s.client.ZRem(ctx, s.indexKey(), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cp.Summary())
	}
	return out, nil
}

// Close closes the client when the store opened it.
func (s *RedisStore) Close() error {
	if s.ownClient {
		return s.client.Close()
	}
	return nil
}
