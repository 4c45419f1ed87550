package storage

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("store is closed")

// Store is the local key-value tier. Values are opaque JSON documents,
// grouped per namespace (one namespace per user).
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace string) (map[string][]byte, error)
	Truncate(ctx context.Context, namespace string) error
	Close() error
}

// NewStore creates the appropriate store based on configuration
func NewStore(ctx context.Context, logger zerolog.Logger) (Store, error) {
	cfg := LoadStoreConfig()

	switch cfg.Mode {
	case StoreModeSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath, logger)
	case StoreModeDynamo:
		return NewDynamoDBStore(ctx, cfg.Dynamo, logger)
	default:
		logger.Info().Msg("settings kept in memory (STORE_MODE=memory)")
		return NewMemoryStore(), nil
	}
}
