// Package snapshot archives rendered listing pages so extraction regressions
// against changed upstream markup can be diagnosed after the fact.
package snapshot

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

// Config selects and parameterizes the snapshot backend.
type Config struct {
	Provider string
	BaseDir  string
	Bucket   string
	Prefix   string
}

// New builds the configured snapshotter. Provider "none" discards pages.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (events.Snapshotter, error) {
	switch cfg.Provider {
	case "", "none":
		return Noop{}, nil
	case "local":
		return NewLocal(cfg.BaseDir)
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		logger.Info("archiving rendered pages to GCS", zap.String("bucket", cfg.Bucket))
		return NewGCS(client, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown snapshot provider: %s", cfg.Provider)
	}
}

// Noop discards snapshots.
type Noop struct{}

// Put discards the data and returns an empty URI.
func (Noop) Put(_ context.Context, _ string, _ string, _ []byte) (string, error) {
	return "", nil
}
