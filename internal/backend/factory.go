package backend

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/backend/memory"
	"tally/internal/backend/postgres"
	"tally/internal/backend/sqlite"
)

// Factory creates backends based on configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create builds the backend named by cfg.Type. The caller owns Close.
func (f *Factory) Create(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Type {
	case PostgresBackend:
		b, err := postgres.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres backend: %w", err)
		}
		f.logger.Info("Initialized postgres backend")
		return b, nil
	case SQLiteBackend:
		b, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		f.logger.Info("Initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
		return b, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
