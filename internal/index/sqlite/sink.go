// Package sqlite provides the default index sink: a single SQLite database
// holding every crawled document plus an FTS5 full-text index over it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JakeFAU/spindle/internal/crawler"
)

// FileName is the database file created inside the index directory.
const FileName = "spindle.db"

// Options configures Open.
type Options struct {
	// Incremental keeps an existing index and upserts into it. Otherwise
	// any existing index in the directory is discarded first.
	Incremental bool
	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{EnableWAL: true}
}

// Sink writes documents into SQLite. Writes are serialized through a
// single connection, so AddDocument is safe for concurrent callers.
type Sink struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id          INTEGER PRIMARY KEY,
		url         TEXT NOT NULL UNIQUE,
		title       TEXT NOT NULL,
		description TEXT NOT NULL,
		content     TEXT NOT NULL,
		bytes       INTEGER NOT NULL,
		indexed_at  TEXT NOT NULL
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
		title, description, content,
		content='documents', content_rowid='id',
		tokenize='porter unicode61'
	)`,
	`CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
		INSERT INTO documents_fts(rowid, title, description, content)
		VALUES (new.id, new.title, new.description, new.content);
	END`,
	`CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
		INSERT INTO documents_fts(documents_fts, rowid, title, description, content)
		VALUES ('delete', old.id, old.title, old.description, old.content);
	END`,
	`CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
		INSERT INTO documents_fts(documents_fts, rowid, title, description, content)
		VALUES ('delete', old.id, old.title, old.description, old.content);
		INSERT INTO documents_fts(rowid, title, description, content)
		VALUES (new.id, new.title, new.description, new.content);
	END`,
}

const upsertDocument = `
	INSERT INTO documents (url, title, description, content, bytes, indexed_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		content = excluded.content,
		bytes = excluded.bytes,
		indexed_at = excluded.indexed_at`

// Open creates (or, in incremental mode, reopens) the index in dir.
func Open(ctx context.Context, dir string, opts Options, logger *zap.Logger) (*Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create index directory %s: %w", dir, err)
	}
	dbPath := filepath.Join(dir, FileName)
	if !opts.Incremental {
		if err := removeDatabase(dbPath); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create index schema: %w", err)
		}
	}

	logger.Info("Opened SQLite index",
		zap.String("path", dbPath),
		zap.Bool("incremental", opts.Incremental),
	)
	return &Sink{db: db, path: dbPath, logger: logger}, nil
}

// Path returns the database file path.
func (s *Sink) Path() string {
	return s.path
}

// AddDocument upserts doc keyed by its URL. Only the visible text is
// indexed as content, so markup never becomes searchable.
func (s *Sink) AddDocument(ctx context.Context, doc crawler.Document) error {
	_, err := s.db.ExecContext(ctx, upsertDocument,
		doc.URL,
		doc.Title,
		doc.Description,
		doc.Text,
		len(doc.Body),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("index document %s: %w", doc.URL, err)
	}
	return nil
}

// Close optimizes the full-text index and closes the database.
func (s *Sink) Close(ctx context.Context) error {
	var errs []error
	if _, err := s.db.ExecContext(ctx, "INSERT INTO documents_fts(documents_fts) VALUES ('optimize')"); err != nil {
		errs = append(errs, fmt.Errorf("optimize index: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close index database: %w", err))
	}
	return errors.Join(errs...)
}

func removeDatabase(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove existing index %s: %w", p, err)
		}
	}
	return nil
}
