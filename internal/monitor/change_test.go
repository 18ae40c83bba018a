package monitor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/IshaanNene/escrutinio/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func snapshot(ts time.Time, fields ...any) *types.Record {
	rec := types.NewRecord("https://example.com", "LAVALLEJA")
	rec.Set(types.FieldTimestamp, ts)
	for i := 0; i+1 < len(fields); i += 2 {
		rec.Set(fields[i].(string), fields[i+1])
	}
	return rec
}

func TestChangeDetector(t *testing.T) {
	cd, err := NewChangeDetector(t.TempDir(), testLogger)
	if err != nil {
		t.Fatalf("NewChangeDetector: %v", err)
	}
	t0 := time.Date(2025, 5, 11, 22, 0, 0, 0, time.UTC)

	changes, err := cd.Detect(snapshot(t0, "votos_Frente_Amplio", int64(100), "votos_Partido_Nacional", int64(90)))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 1 || changes[0].Type != ChangeAdded || changes[0].Field != "" {
		t.Fatalf("expected a single first-sighting change, got %+v", changes)
	}

	// Same values, later timestamp: nothing to report.
	changes, err = cd.Detect(snapshot(t0.Add(time.Minute), "votos_Frente_Amplio", int64(100), "votos_Partido_Nacional", int64(90)))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no changes, got %+v", changes)
	}

	changes, err = cd.Detect(snapshot(t0.Add(2*time.Minute),
		"votos_Frente_Amplio", int64(150),
		"votos_Partido_Colorado", int64(5),
	))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	want := []Change{
		{District: "LAVALLEJA", Type: ChangeModified, Field: "votos_Frente_Amplio", OldValue: "100", NewValue: "150"},
		{District: "LAVALLEJA", Type: ChangeAdded, Field: "votos_Partido_Colorado", NewValue: "5"},
		{District: "LAVALLEJA", Type: ChangeRemoved, Field: "votos_Partido_Nacional", OldValue: "90"},
	}
	if diff := cmp.Diff(want, changes, cmpopts.IgnoreFields(Change{}, "Timestamp")); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestChangeDetectorDistrictsIsolated(t *testing.T) {
	cd, _ := NewChangeDetector(t.TempDir(), testLogger)
	t0 := time.Now()

	_, _ = cd.Detect(snapshot(t0, "votos_Frente_Amplio", int64(1)))

	other := snapshot(t0, "votos_Frente_Amplio", int64(2))
	other.District = "MALDONADO"
	changes, err := cd.Detect(other)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 1 || changes[0].Type != ChangeAdded || changes[0].District != "MALDONADO" {
		t.Errorf("expected first sighting for MALDONADO, got %+v", changes)
	}
}

func TestWatchRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, 10*time.Millisecond, testLogger, func(ctx context.Context) error {
			if calls.Add(1) >= 3 {
				cancel()
			}
			return errors.New("page unavailable")
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancellation")
	}

	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 runs despite failures, got %d", n)
	}
}

func TestWatchRejectsBadInterval(t *testing.T) {
	err := Watch(context.Background(), 0, testLogger, func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for zero interval")
	}
}
