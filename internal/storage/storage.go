package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/escrutinio/internal/config"
	"github.com/IshaanNene/escrutinio/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists a batch of records.
	Store(ctx context.Context, records []*types.Record) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// NewStorage builds the backends listed in cfg.Types. A single backend is
// returned as-is; several are wrapped in a MultiStorage.
func NewStorage(cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	if len(cfg.Types) == 0 {
		return nil, types.ErrNoBackends
	}

	backends := make([]Storage, 0, len(cfg.Types))
	closeAll := func() {
		for _, b := range backends {
			_ = b.Close()
		}
	}

	for _, t := range cfg.Types {
		var (
			s   Storage
			err error
		)
		switch t {
		case "csv":
			s, err = NewCSVStorage(cfg.OutputPath, logger)
		case "jsonl":
			s, err = NewJSONLStorage(cfg.LogPath, logger)
		case "sqlite":
			s, err = NewSQLiteStorage(cfg.SQLitePath, logger)
		case "mongodb":
			s, err = NewMongoStorage(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, logger)
		default:
			err = fmt.Errorf("unsupported storage type: %s", t)
		}
		if err != nil {
			closeAll()
			return nil, &types.StorageError{Backend: t, Err: err}
		}
		backends = append(backends, s)
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiStorage(backends, logger), nil
}
