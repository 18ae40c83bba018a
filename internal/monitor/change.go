package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/escrutinio/internal/types"
)

// ChangeType identifies what kind of change occurred.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Change represents a field that moved between two snapshots of a district.
type Change struct {
	District  string     `json:"district"`
	Type      ChangeType `json:"type"`
	Field     string     `json:"field,omitempty"`
	OldValue  string     `json:"old_value,omitempty"`
	NewValue  string     `json:"new_value,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ChangeDetector compares each new record with the last one stored for the
// same district.
type ChangeDetector struct {
	snapshotDir string
	logger      *slog.Logger
	mu          sync.Mutex
}

// NewChangeDetector creates a new change detector.
func NewChangeDetector(snapshotDir string, logger *slog.Logger) (*ChangeDetector, error) {
	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &ChangeDetector{
		snapshotDir: snapshotDir,
		logger:      logger.With("component", "change_detector"),
	}, nil
}

// Detect compares rec against its district's last snapshot, logs and
// returns the changes, and then makes rec the new snapshot. The capture time
// is not compared. The first record of a district yields one ChangeAdded
// with no field.
func (cd *ChangeDetector) Detect(rec *types.Record) ([]Change, error) {
	cd.mu.Lock()
	defer cd.mu.Unlock()

	now := time.Now()
	old, err := cd.loadSnapshot(rec.District)
	if err != nil {
		return nil, err
	}

	var changes []Change
	if old == nil {
		changes = append(changes, Change{District: rec.District, Type: ChangeAdded, Timestamp: now})
	} else {
		for _, key := range rec.Keys() {
			if key == types.FieldTimestamp {
				continue
			}
			newStr := rec.FlatValue(key)
			if !old.Has(key) {
				changes = append(changes, Change{
					District:  rec.District,
					Type:      ChangeAdded,
					Field:     key,
					NewValue:  truncateStr(newStr, 200),
					Timestamp: now,
				})
				continue
			}
			if oldStr := old.FlatValue(key); oldStr != newStr {
				changes = append(changes, Change{
					District:  rec.District,
					Type:      ChangeModified,
					Field:     key,
					OldValue:  truncateStr(oldStr, 200),
					NewValue:  truncateStr(newStr, 200),
					Timestamp: now,
				})
			}
		}

		for _, key := range old.Keys() {
			if key == types.FieldTimestamp || rec.Has(key) {
				continue
			}
			changes = append(changes, Change{
				District:  rec.District,
				Type:      ChangeRemoved,
				Field:     key,
				OldValue:  truncateStr(old.FlatValue(key), 200),
				Timestamp: now,
			})
		}
	}

	if err := cd.saveSnapshot(rec); err != nil {
		return changes, err
	}

	for _, c := range changes {
		cd.logger.Info("change detected",
			"district", c.District,
			"type", c.Type,
			"field", c.Field,
			"old", c.OldValue,
			"new", c.NewValue,
		)
	}
	return changes, nil
}

// loadSnapshot returns nil, nil when the district has no snapshot yet.
func (cd *ChangeDetector) loadSnapshot(district string) (*types.Record, error) {
	data, err := os.ReadFile(cd.snapshotPath(district))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	rec := types.NewRecord("", district)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return rec, nil
}

func (cd *ChangeDetector) saveSnapshot(rec *types.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(cd.snapshotPath(rec.District), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (cd *ChangeDetector) snapshotPath(district string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, strings.ToLower(district))
	if name == "" || name == "." || name == ".." {
		name = "_"
	}
	return filepath.Join(cd.snapshotDir, name+".json")
}

func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
