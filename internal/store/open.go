package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"roleplay-chat/backend/pkg/config"
	"roleplay-chat/backend/pkg/logger"
)

// Backend names accepted by STORAGE_BACKEND
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// OpenBackend builds the Backend selected by cfg.Storage.Backend
func OpenBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case BackendMemory:
		return NewMemoryBackend(), nil
	case BackendFile, "":
		return NewFileBackend(cfg.Storage.Path)
	case BackendSQLite:
		path := cfg.Storage.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "roleplay.db")
		}
		return NewSQLiteBackend(ctx, path)
	case BackendRedis:
		return NewRedisBackend(ctx, cfg.Storage.RedisURL, cfg.Storage.ConnectRetries)
	case BackendPostgres:
		return NewPostgresBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Open builds a Store on the configured backend
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Store, error) {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.OrNop(log).Info("Store opened", "backend", cfg.Storage.Backend)
	return New(backend, log), nil
}
