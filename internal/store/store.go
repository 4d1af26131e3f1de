// Package store persists the whole application snapshot. Every backend has
// atomic, whole-state overwrite semantics: a Save either fully replaces the
// previous state or leaves it untouched.
package store

import (
	"context"
	"fmt"

	"github.com/kapu/glicko-ladder-go/internal/config"
	"github.com/kapu/glicko-ladder-go/pkg/ladderdto"
)

// Store is the persistence boundary of the ladder core. Load returns
// (nil, nil) when no state has ever been saved.
type Store interface {
	Save(ctx context.Context, st *ladderdto.State) error
	Load(ctx context.Context) (*ladderdto.State, error)
	Close() error
}

// Open builds the backend selected by the configuration.
func Open(cfg *config.AppConfig) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreFile:
		return NewFileStore(cfg.StateFile), nil
	case config.StoreRedis:
		return NewRedisStore(cfg.RedisURL)
	case config.StorePostgres:
		return NewPostgresStore(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
