// Package cmd provides common initialization functions for the command-line
// binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/loomflow/loom/pkg/persistence"
	"github.com/loomflow/loom/pkg/persistence/memory"
	"github.com/loomflow/loom/pkg/persistence/postgres"
)

// NewPersistence builds a store from a database URL. postgres:// URLs get
// the PostgreSQL adapter; memory:// (and anything else) the in-memory one.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgres.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return store
	default:
		return memory.NewPersistence()
	}
}

func parseProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)

	return parts[0]
}
