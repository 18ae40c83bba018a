package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/escrutinio/internal/config"
	"github.com/IshaanNene/escrutinio/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var captured = time.Date(2025, 5, 11, 23, 45, 1, 123456000, time.FixedZone("UYT", -3*3600))

func makeRecord(fields ...any) *types.Record {
	rec := types.NewRecord("https://example.com/r.htm", "LAVALLEJA")
	rec.Set(types.FieldTimestamp, captured)
	for i := 0; i+1 < len(fields); i += 2 {
		rec.Set(fields[i].(string), fields[i+1])
	}
	return rec
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestCSVStorageCreatesHeaderAndRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "elecciones.csv")
	s, err := NewCSVStorage(path, testLogger)
	if err != nil {
		t.Fatalf("NewCSVStorage: %v", err)
	}
	defer s.Close()

	rec := makeRecord(types.FieldTotalHabilitados, int64(12345), "votos_Frente_Amplio", int64(14200))
	if err := s.Store(context.Background(), []*types.Record{rec}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	want := []string{
		"timestamp,totalHabilitados,votos_Frente_Amplio",
		"2025-05-11T23:45:01.123456-03:00,12345,14200",
	}
	if diff := cmp.Diff(want, readLines(t, path)); diff != "" {
		t.Errorf("file mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVStorageUnionColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elecciones.csv")
	s, _ := NewCSVStorage(path, testLogger)
	ctx := context.Background()

	first := makeRecord("votos_Partido_Nacional", int64(10), "votos_Frente_Amplio", int64(20))
	second := makeRecord("votos_Frente_Amplio", int64(21), "votos_Partido_Colorado", int64(3))

	if err := s.Store(ctx, []*types.Record{first}); err != nil {
		t.Fatalf("Store first: %v", err)
	}
	if err := s.Store(ctx, []*types.Record{second}); err != nil {
		t.Fatalf("Store second: %v", err)
	}

	table, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	wantCols := []string{"timestamp", "votos_Partido_Nacional", "votos_Frente_Amplio", "votos_Partido_Colorado"}
	if diff := cmp.Diff(wantCols, table.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	ts := captured.Format(types.TimestampLayout)
	wantRows := [][]string{
		{ts, "10", "20", ""},
		{ts, "", "21", "3"},
	}
	if diff := cmp.Diff(wantRows, table.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if got := table.Cell(0, "votos_Partido_Colorado"); got != "" {
		t.Errorf("expected empty cell, got %q", got)
	}
	if got := table.Cell(1, "no_such_column"); got != "" {
		t.Errorf("expected empty cell for unknown column, got %q", got)
	}
}

func TestCSVStorageQuotesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elecciones.csv")
	s, _ := NewCSVStorage(path, testLogger)

	rec := makeRecord(types.FieldCircuitosEscrutados, `268, "todos"`)
	if err := s.Store(context.Background(), []*types.Record{rec}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	table, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := table.Cell(0, types.FieldCircuitosEscrutados); got != `268, "todos"` {
		t.Errorf("value not round-tripped: %q", got)
	}
}

func TestCSVStorageCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elecciones.csv")
	s, _ := NewCSVStorage(path, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Store(ctx, []*types.Record{makeRecord()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be written for a cancelled store")
	}
}

func TestReadCSVMissingFile(t *testing.T) {
	table, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(table.Columns) != 0 || len(table.Rows) != 0 {
		t.Errorf("expected empty table, got %+v", table)
	}
}

func TestReadCSVShortRowsPadded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	if err := os.WriteFile(path, []byte("a,b,c\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if diff := cmp.Diff([][]string{{"1", "2", ""}}, table.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONLStorageAndMaterialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	s, err := NewJSONLStorage(path, testLogger)
	if err != nil {
		t.Fatalf("NewJSONLStorage: %v", err)
	}

	ctx := context.Background()
	_ = s.Store(ctx, []*types.Record{makeRecord("votos_Frente_Amplio", int64(20))})
	_ = s.Store(ctx, []*types.Record{makeRecord(types.FieldTotalCircuitos, int64(268), "votos_Frente_Amplio", int64(21))})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if n := len(readLines(t, path)); n != 2 {
		t.Fatalf("expected 2 lines, got %d", n)
	}

	// Reopening appends rather than truncating.
	s2, _ := NewJSONLStorage(path, testLogger)
	_ = s2.Store(ctx, []*types.Record{makeRecord("votos_Partido_Nacional", int64(5))})
	_ = s2.Close()

	table, err := Materialize(path)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	wantCols := []string{"timestamp", "votos_Frente_Amplio", "totalCircuitos", "votos_Partido_Nacional"}
	if diff := cmp.Diff(wantCols, table.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	ts := captured.Format(types.TimestampLayout)
	wantRows := [][]string{
		{ts, "20", "", ""},
		{ts, "21", "268", ""},
		{ts, "", "", "5"},
	}
	if diff := cmp.Diff(wantRows, table.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	// Materialized table exports to the same shape as the CSV backend.
	out := filepath.Join(t.TempDir(), "export.csv")
	if err := table.WriteCSV(out); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	back, err := ReadCSV(out)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if diff := cmp.Diff(table.Rows, back.Rows); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterializeBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	if err := os.WriteFile(path, []byte("{\"a\":1}\n[1,2]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Materialize(path)
	if err == nil || !strings.Contains(err.Error(), ":2:") {
		t.Fatalf("expected error naming line 2, got %v", err)
	}
}

func TestSQLiteStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elecciones.db")
	s, err := NewSQLiteStorage(path, testLogger)
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	first := makeRecord(types.FieldUltimaActualizacion, "11/05/2025 23:41", "votos_Frente_Amplio", int64(20))
	second := makeRecord("votos_Frente_Amplio", int64(21))
	other := makeRecord("votos_Partido_Nacional", int64(1))
	other.District = "MALDONADO"

	if err := s.Store(ctx, []*types.Record{first, second, other}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	history, err := s.History(ctx, "LAVALLEJA")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}

	got := history[0]
	if got.Source != first.Source || got.District != "LAVALLEJA" {
		t.Errorf("metadata not restored: %q %q", got.Source, got.District)
	}
	if diff := cmp.Diff(first.Keys(), got.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if n, _ := history[1].GetInt("votos_Frente_Amplio"); n != 21 {
		t.Errorf("expected 21, got %d", n)
	}
}

type failingStorage struct {
	name  string
	err   error
	calls int
}

func (f *failingStorage) Store(ctx context.Context, records []*types.Record) error {
	f.calls++
	return f.err
}
func (f *failingStorage) Close() error { return nil }
func (f *failingStorage) Name() string { return f.name }

func TestMultiStorageFirstError(t *testing.T) {
	boom := errors.New("disk full")
	a := &failingStorage{name: "a"}
	b := &failingStorage{name: "b", err: boom}
	c := &failingStorage{name: "c", err: errors.New("other")}

	m := NewMultiStorage([]Storage{a, b, c}, testLogger)
	err := m.Store(context.Background(), []*types.Record{makeRecord()})

	var se *types.StorageError
	if !errors.As(err, &se) || se.Backend != "b" {
		t.Fatalf("expected StorageError from b, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Errorf("every backend should be tried: %d %d %d", a.calls, b.calls, c.calls)
	}
}

func TestNewStorage(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig().Storage
	cfg.OutputPath = filepath.Join(dir, "out.csv")
	cfg.LogPath = filepath.Join(dir, "out.jsonl")
	cfg.SQLitePath = filepath.Join(dir, "out.db")

	s, err := NewStorage(&cfg, testLogger)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	if s.Name() != "csv" {
		t.Errorf("expected csv, got %s", s.Name())
	}
	_ = s.Close()

	cfg.Types = []string{"csv", "jsonl", "sqlite"}
	s, err = NewStorage(&cfg, testLogger)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	defer s.Close()
	if s.Name() != "multi" {
		t.Errorf("expected multi, got %s", s.Name())
	}
	if err := s.Store(context.Background(), []*types.Record{makeRecord()}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	for _, p := range []string{cfg.OutputPath, cfg.LogPath, cfg.SQLitePath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}

	cfg.Types = nil
	if _, err := NewStorage(&cfg, testLogger); !errors.Is(err, types.ErrNoBackends) {
		t.Errorf("expected ErrNoBackends, got %v", err)
	}

	cfg.Types = []string{"parquet"}
	var se *types.StorageError
	if _, err := NewStorage(&cfg, testLogger); !errors.As(err, &se) {
		t.Errorf("expected StorageError, got %v", err)
	}
}
