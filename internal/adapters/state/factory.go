package state

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/redis/go-redis/v9"
)

// Backend names accepted by NewCheckpointStore.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendRedis  = "redis"
)

// Options configures checkpoint store creation.
type Options struct {
	// Backend selects the implementation. Empty means sqlite.
	Backend string

	// Path is the SQLite database file or the JSON directory.
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// TerminalTTL expires finished runs (redis only).
	TerminalTTL time.Duration
}

// NewCheckpointStore creates the store selected by opts.Backend.
func NewCheckpointStore(ctx context.Context, opts Options) (core.CheckpointStore, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case "", BackendSQLite:
		path := opts.Path
		if path == "" {
			path = filepath.Join(".research", "state", "runs.db")
		}
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteStore(path)
	case BackendJSON:
		dir := opts.Path
		if dir == "" {
			dir = filepath.Join(".research", "state", "runs")
		}
		return NewJSONStore(dir)
	case BackendRedis:
		var storeOpts []RedisStoreOption
		if opts.RedisPrefix != "" {
			storeOpts = append(storeOpts, WithKeyPrefix(opts.RedisPrefix))
		}
		if opts.TerminalTTL > 0 {
			storeOpts = append(storeOpts, WithTerminalTTL(opts.TerminalTTL))
		}
		return DialRedisStore(ctx, &redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		}, storeOpts...)
	default:
		return nil, fmt.Errorf("unknown state backend: %s", opts.Backend)
	}
}
