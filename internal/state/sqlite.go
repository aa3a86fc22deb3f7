package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open connects to the database at path, creating its directory if needed,
// and applies migrations. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return err
	}
	s.logger.Debug("state store opened", slog.String("path", path))
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// RecordBuild stores b, assigning an ID when it has none.
func (s *SQLiteStore) RecordBuild(ctx context.Context, b *Build) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if b.ID == "" {
		b.ID = generateID()
	}
	if b.StartedAt.IsZero() {
		b.StartedAt = time.Now()
	}

	var errMsg sql.NullString
	if b.Error != "" {
		errMsg = sql.NullString{String: b.Error, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, mode, environment, status, started_at, duration_ms, assets, pages, bytes, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Mode, b.Environment, string(b.Status), b.StartedAt.UTC().UnixNano(),
		b.Duration.Milliseconds(), b.Assets, b.Pages, b.Bytes, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to record build: %w", err)
	}

	s.logger.Debug("recorded build", slog.String("id", b.ID), slog.String("status", string(b.Status)))
	return nil
}

// ListBuilds returns up to limit builds, newest first.
func (s *SQLiteStore) ListBuilds(ctx context.Context, limit int) ([]*Build, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, environment, status, started_at, duration_ms, assets, pages, bytes, error
		 FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var builds []*Build
	for rows.Next() {
		var (
			b          Build
			status     string
			startedAt  int64
			durationMS int64
			errMsg     sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Mode, &b.Environment, &status, &startedAt, &durationMS,
			&b.Assets, &b.Pages, &b.Bytes, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		b.Status = BuildStatus(status)
		b.StartedAt = time.Unix(0, startedAt).UTC()
		b.Duration = time.Duration(durationMS) * time.Millisecond
		b.Error = errMsg.String
		builds = append(builds, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	return builds, nil
}
