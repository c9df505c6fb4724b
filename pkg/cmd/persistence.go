package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aviary-sh/aviary/pkg/persistence"
	"github.com/aviary-sh/aviary/pkg/persistence/file"
	"github.com/aviary-sh/aviary/pkg/persistence/sqlite"
)

// NewPersistence picks the backend from the database URL scheme:
// sqlite://path/to.db or file://path/to/dir. An unknown scheme falls
// back to file storage.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "sqlite":
		return sqlite.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	return parts[0]
}
