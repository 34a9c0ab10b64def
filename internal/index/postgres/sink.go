// Package postgres provides an index sink backed by a Postgres table with a
// generated tsvector column for full-text search.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/spindle/internal/crawler"
)

const defaultTable = "documents"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and target table.
type Config struct {
	DSN             string
	Table           string
	Incremental     bool
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Sink upserts documents into Postgres.
type Sink struct {
	pool   execCloser
	table  string
	logger *zap.Logger
}

// New connects to Postgres, ensures the schema exists and, unless
// cfg.Incremental is set, empties the table.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("index destination DSN is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewWithPool(ctx, pool, cfg.Table, cfg.Incremental, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool constructs a sink from an existing pool (primarily for testing).
func NewWithPool(ctx context.Context, pool execCloser, table string, incremental bool, logger *zap.Logger) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sink{pool: pool, table: table, logger: logger}
	if err := s.prepare(ctx, incremental); err != nil {
		return nil, err
	}
	logger.Info("Opened Postgres index",
		zap.String("table", table),
		zap.Bool("incremental", incremental),
	)
	return s, nil
}

func (s *Sink) prepare(ctx context.Context, incremental bool) error {
	stmts := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	content TEXT NOT NULL,
	bytes INTEGER NOT NULL,
	indexed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	search tsvector GENERATED ALWAYS AS (
		setweight(to_tsvector('simple', title), 'A') ||
		setweight(to_tsvector('simple', description), 'B') ||
		to_tsvector('simple', content)
	) STORED
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_search_idx ON %s USING GIN (search)`, s.table, s.table),
	}
	if !incremental {
		stmts = append(stmts, fmt.Sprintf(`TRUNCATE TABLE %s`, s.table))
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("prepare index table: %w", err)
		}
	}
	return nil
}

// AddDocument upserts doc keyed by its URL. Only the visible text is
// searchable; the markup is counted but not stored.
func (s *Sink) AddDocument(ctx context.Context, doc crawler.Document) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres index is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (url, title, description, content, bytes)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	content = EXCLUDED.content,
	bytes = EXCLUDED.bytes,
	indexed_at = now()`, s.table)

	if _, err := s.pool.Exec(ctx, query, doc.URL, doc.Title, doc.Description, doc.Text, len(doc.Body)); err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.URL, err)
	}
	return nil
}

// Close refreshes planner statistics and releases the pool.
func (s *Sink) Close(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	var err error
	if _, aerr := s.pool.Exec(ctx, fmt.Sprintf("ANALYZE %s", s.table)); aerr != nil {
		err = errors.Join(err, fmt.Errorf("analyze index table: %w", aerr))
	}
	s.pool.Close()
	return err
}
