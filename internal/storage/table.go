package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/IshaanNene/escrutinio/internal/types"
)

// Table is a sparse table of flattened records. A missing cell is the empty
// string.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

func (t *Table) ensureIndex() {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			t.index[c] = i
		}
	}
}

func (t *Table) column(name string) int {
	t.ensureIndex()
	if i, ok := t.index[name]; ok {
		return i
	}
	t.Columns = append(t.Columns, name)
	t.index[name] = len(t.Columns) - 1
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return len(t.Columns) - 1
}

// Append adds a record as a new row. Columns the table has not seen yet are
// appended in the record's field order; earlier rows get empty cells.
func (t *Table) Append(rec *types.Record) {
	keys := rec.Keys()
	idx := make([]int, len(keys))
	for i, k := range keys {
		idx[i] = t.column(k)
	}

	row := make([]string, len(t.Columns))
	for i, k := range keys {
		row[idx[i]] = rec.FlatValue(k)
	}
	t.Rows = append(t.Rows, row)
}

// Cell returns the value of column name in row i, or "" when absent.
func (t *Table) Cell(i int, name string) string {
	t.ensureIndex()
	c, ok := t.index[name]
	if !ok || i < 0 || i >= len(t.Rows) || c >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][c]
}

// ReadCSV loads a table from a CSV file with a header row. A missing or
// empty file yields an empty table.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	t := NewTable()
	for _, h := range header {
		t.column(h)
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		if len(rec) > len(t.Columns) {
			return nil, fmt.Errorf("read CSV row: %d cells for %d columns", len(rec), len(t.Columns))
		}
		row := make([]string, len(t.Columns))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// Write writes the table as CSV with a header row.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV replaces the file at path with the table. The table is written to
// a temporary file in the same directory and renamed into place.
func (t *Table) WriteCSV(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := t.Write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
