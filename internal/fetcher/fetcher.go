package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/escrutinio/internal/config"
	"github.com/IshaanNene/escrutinio/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch loads the request's page, applies the district selection and
	// returns the rendered content.
	Fetch(ctx context.Context, req *types.Request) (*types.Page, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New creates the fetcher named by cfg.Fetcher.Type.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "browser":
		return NewBrowserFetcher(cfg, logger), nil
	case "http":
		return NewStaticFetcher(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported fetcher type: %s", cfg.Fetcher.Type)
	}
}
