package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/escrutinio/internal/config"
	"github.com/IshaanNene/escrutinio/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newRecord() *types.Record {
	rec := types.NewRecord("https://example.com", "LAVALLEJA")
	rec.Set(types.FieldTimestamp, time.Date(2025, 5, 11, 23, 0, 0, 0, time.UTC))
	return rec
}

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	rec := newRecord()
	rec.Set(types.FieldUltimaActualizacion, "  11/05/2025 23:41  ")
	rec.Set("votos_Frente_Amplio", int64(10))

	result, err := p.Process(rec)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if got := result.GetString(types.FieldUltimaActualizacion); got != "11/05/2025 23:41" {
		t.Errorf("expected trimmed value, got %q", got)
	}
	if n, _ := result.GetInt("votos_Frente_Amplio"); n != 10 {
		t.Errorf("non-string field changed: %d", n)
	}
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{Fields: []string{types.FieldTimestamp}}

	result, err := m.Process(newRecord())
	if err != nil || result == nil {
		t.Error("record with required field should pass")
	}

	rec := types.NewRecord("https://example.com", "LAVALLEJA")
	rec.Set(types.FieldTotalHabilitados, int64(1))
	result, _ = m.Process(rec)
	if result != nil {
		t.Error("record missing required field should be dropped (nil)")
	}

	rec.Set(types.FieldTimestamp, "")
	result, _ = m.Process(rec)
	if result != nil {
		t.Error("record with empty required field should be dropped (nil)")
	}
}

func TestPipelineDropIsError(t *testing.T) {
	p := NewFromConfig(config.PipelineConfig{}, testLogger)

	rec := types.NewRecord("https://example.com", "LAVALLEJA")
	_, err := p.Process(rec)

	var pe *types.PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if pe.Stage != "required_fields" {
		t.Errorf("expected stage required_fields, got %q", pe.Stage)
	}
	if !errors.Is(err, types.ErrDropped) {
		t.Errorf("expected ErrDropped, got %v", err)
	}
	if types.IsTransient(err) {
		t.Error("a dropped record is a permanent failure")
	}
}

func TestDefaultValueMiddleware(t *testing.T) {
	m := &DefaultValueMiddleware{Defaults: map[string]any{
		"zona":                      "este",
		"circuitosconobservaciones": 0,
		types.FieldTotalCircuitos:   999,
	}}

	rec := newRecord()
	rec.Set(types.FieldTotalCircuitos, int64(268))

	result, err := m.Process(rec)
	if err != nil {
		t.Fatalf("error: %v", err)
	}

	want := []string{types.FieldTimestamp, types.FieldTotalCircuitos, "circuitosconobservaciones", "zona"}
	if diff := cmp.Diff(want, result.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if n, _ := result.GetInt(types.FieldTotalCircuitos); n != 268 {
		t.Errorf("existing field overwritten: %d", n)
	}
	if v, _ := result.Get("circuitosconobservaciones"); v != int64(0) {
		t.Errorf("expected int64 default, got %#v", v)
	}
}

func TestNewFromConfig(t *testing.T) {
	if n := NewFromConfig(config.PipelineConfig{}, testLogger).Len(); n != 2 {
		t.Errorf("expected 2 stages, got %d", n)
	}
	cfg := config.PipelineConfig{Defaults: map[string]any{"zona": "este"}}
	p := NewFromConfig(cfg, testLogger)
	if p.Len() != 3 {
		t.Errorf("expected 3 stages, got %d", p.Len())
	}

	result, err := p.Process(newRecord())
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.GetString("zona") != "este" {
		t.Errorf("default not applied: %v", result.ToMap())
	}
}
