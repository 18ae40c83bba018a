package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/IshaanNene/escrutinio/internal/types"
)

//go:embed schema.sql
var sqliteSchema string

// SQLiteStorage keeps every record as a row in a local SQLite database, with
// the fields serialized as an ordered JSON object.
type SQLiteStorage struct {
	path   string
	db     *sql.DB
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewSQLiteStorage opens the database at path and creates the schema.
func NewSQLiteStorage(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLiteStorage{
		path:   path,
		db:     db,
		logger: logger.With("component", "sqlite_storage"),
	}, nil
}

func (s *SQLiteStorage) Name() string { return "sqlite" }

func (s *SQLiteStorage) Store(ctx context.Context, records []*types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshots (district, source, captured_at, fields) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		fields, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		capturedAt := rec.FlatValue(types.FieldTimestamp)
		if _, err := stmt.ExecContext(ctx, rec.District, rec.Source, capturedAt, string(fields)); err != nil {
			return fmt.Errorf("sqlite insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}

	s.count += len(records)
	s.logger.Debug("records stored in sqlite", "count", len(records), "total", s.count)
	return nil
}

// History returns the stored records for a district, oldest first.
func (s *SQLiteStorage) History(ctx context.Context, district string) ([]*types.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, fields FROM snapshots WHERE district = ? ORDER BY id`, district)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()

	var out []*types.Record
	for rows.Next() {
		var source, fields string
		if err := rows.Scan(&source, &fields); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		rec := types.NewRecord(source, district)
		if err := json.Unmarshal([]byte(fields), rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	s.logger.Debug("sqlite storage closing", "path", s.path, "records", s.count)
	return s.db.Close()
}
