package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/escrutinio/internal/types"
)

// --- CSV Storage ---

// CSVStorage keeps one row per record in a CSV file whose header is the union
// of every field seen so far.
//
// Each Store reads the whole file, merges the new rows in and rewrites it.
// Two processes storing to the same path at once can lose a row.
type CSVStorage struct {
	path   string
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewCSVStorage creates a new CSV file storage. The file itself is only
// created by the first Store.
func NewCSVStorage(outputPath string, logger *slog.Logger) (*CSVStorage, error) {
	if outputPath == "" {
		return nil, fmt.Errorf("csv storage: empty output path")
	}
	return &CSVStorage{
		path:   outputPath,
		logger: logger.With("component", "csv_storage"),
	}, nil
}

func (s *CSVStorage) Name() string { return "csv" }

// Path returns the CSV file location.
func (s *CSVStorage) Path() string { return s.path }

func (s *CSVStorage) Store(ctx context.Context, records []*types.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := ReadCSV(s.path)
	if err != nil {
		return err
	}
	before := len(table.Columns)

	for _, rec := range records {
		table.Append(rec)
	}

	if err := table.WriteCSV(s.path); err != nil {
		return err
	}

	s.count += len(records)
	s.logger.Debug("rows appended",
		"path", s.path,
		"rows", len(records),
		"total_rows", len(table.Rows),
		"new_columns", len(table.Columns)-before,
	)
	return nil
}

func (s *CSVStorage) Close() error {
	s.logger.Debug("csv storage closing", "path", s.path, "records", s.count)
	return nil
}

// --- JSONL Storage ---

// JSONLStorage appends records to a newline-delimited JSON log, one object per
// line. Each record is written with a single write on an O_APPEND descriptor,
// so concurrent writers never interleave within a line.
type JSONLStorage struct {
	path   string
	file   *os.File
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLStorage opens (or creates) the log for appending.
func NewJSONLStorage(logPath string, logger *slog.Logger) (*JSONLStorage, error) {
	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &JSONLStorage{
		path:   logPath,
		file:   f,
		logger: logger.With("component", "jsonl_storage"),
	}, nil
}

func (s *JSONLStorage) Name() string { return "jsonl" }

func (s *JSONLStorage) Store(ctx context.Context, records []*types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode JSONL: %w", err)
		}
		line = append(line, '\n')
		if _, err := s.file.Write(line); err != nil {
			return fmt.Errorf("write JSONL: %w", err)
		}
		s.count++
	}
	return nil
}

func (s *JSONLStorage) Close() error {
	s.logger.Debug("jsonl storage closing", "path", s.path, "records", s.count)
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// Materialize rebuilds the sparse table from a JSONL log. Columns appear in
// the order fields were first seen; rows follow the log order.
func Materialize(logPath string) (*Table, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	table := NewTable()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		rec := types.NewRecord("", "")
		if err := json.Unmarshal(line, rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", logPath, lineNo, err)
		}
		table.Append(rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	return table, nil
}
