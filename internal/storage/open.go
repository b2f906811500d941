package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/nerdneilsfield/inkwash-card/internal/card"
	"go.uber.org/zap"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

type Options struct {
	Backend    string
	TTL        time.Duration
	MaxEntries int

	SQLitePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MySQLDSN string
}

// Open builds the configured card store. The returned close function
// releases its connections and is never nil.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (card.Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case "", BackendMemory:
		logger.Warn("Using in-memory card store; cards are lost on restart and not shared between instances")
		return NewMemoryStore(opts.TTL, opts.MaxEntries), noop, nil

	case BackendSQLite:
		db, err := InitDB(opts.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		store := NewGormCardStore(db, opts.TTL)
		if opts.TTL > 0 {
			if n, err := store.PurgeExpired(ctx); err != nil {
				logger.Warn("Failed to purge expired cards", zap.Error(err))
			} else if n > 0 {
				logger.Info("Purged expired cards", zap.Int64("count", n))
			}
		}
		return store, func() error { return CloseDB(db) }, nil

	case BackendRedis:
		client, err := NewRedisClient(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			return nil, noop, err
		}
		return NewRedisCardStore(client, opts.TTL), client.Close, nil

	case BackendMySQL:
		db, err := OpenMySQL(opts.MySQLDSN)
		if err != nil {
			return nil, noop, err
		}
		store, err := NewSQLCardStore(ctx, db, opts.TTL)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return store, db.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
