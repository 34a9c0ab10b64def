// Package index selects the IndexSink implementation for a destination.
package index

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/spindle/internal/crawler"
	"github.com/JakeFAU/spindle/internal/index/memory"
	"github.com/JakeFAU/spindle/internal/index/postgres"
	"github.com/JakeFAU/spindle/internal/index/sqlite"
)

// MemoryDestination keeps documents in memory and discards them on exit.
const MemoryDestination = "memory:"

// Options configures Open.
type Options struct {
	Destination string
	Incremental bool
	// Table overrides the Postgres table name.
	Table string
}

// Open returns the sink for opts.Destination:
//   - postgres:// or postgresql:// URLs use the Postgres sink
//   - "memory:" uses the in-memory sink
//   - anything else is a directory for the SQLite sink
func Open(ctx context.Context, opts Options, logger *zap.Logger) (crawler.IndexSink, error) {
	dest := strings.TrimSpace(opts.Destination)
	switch {
	case IsPostgres(dest):
		return postgres.New(ctx, postgres.Config{
			DSN:         dest,
			Table:       opts.Table,
			Incremental: opts.Incremental,
		}, logger)
	case dest == MemoryDestination:
		return memory.NewSink(), nil
	default:
		sqliteOpts := sqlite.DefaultOptions()
		sqliteOpts.Incremental = opts.Incremental
		return sqlite.Open(ctx, dest, sqliteOpts, logger)
	}
}

// IsPostgres reports whether dest is a Postgres connection URL.
func IsPostgres(dest string) bool {
	lower := strings.ToLower(dest)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}
