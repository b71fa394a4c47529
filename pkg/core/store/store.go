// Package store provides filing record stores: PostgreSQL, a directory of
// JSON documents and an in-memory store for tests and one-off runs.
package store

import (
	"context"
	"log/slog"

	"filing_analyzer/pkg/core/filing"
)

// Repository is a filing store that also accepts new filings.
type Repository interface {
	filing.Store
	SaveFiling(ctx context.Context, rec filing.Record) error
}

// Open returns a PostgreSQL store when databaseURL is set and a file store
// over dir otherwise.
func Open(ctx context.Context, databaseURL, dir string, logger *slog.Logger) (Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if databaseURL != "" {
		p, err := InitDB(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(p, logger)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		logger.Info("using postgres filing store")
		return s, nil
	}
	logger.Info("using file filing store", "dir", dir)
	return NewFileStore(dir, logger)
}
