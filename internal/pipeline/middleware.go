package pipeline

import (
	"sort"
	"strings"

	"github.com/IshaanNene/escrutinio/internal/types"
)

// TrimMiddleware trims whitespace from all string fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec *types.Record) (*types.Record, error) {
	for _, key := range rec.Keys() {
		if s := rec.GetString(key); s != "" {
			rec.Set(key, strings.TrimSpace(s))
		}
	}
	return rec, nil
}

// RequiredFieldsMiddleware drops records missing required fields.
type RequiredFieldsMiddleware struct {
	Fields []string
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(rec *types.Record) (*types.Record, error) {
	for _, field := range m.Fields {
		val, ok := rec.Get(field)
		if !ok || val == nil {
			return nil, nil
		}
		if s, isStr := val.(string); isStr && s == "" {
			return nil, nil
		}
	}
	return rec, nil
}

// DefaultValueMiddleware sets default values for missing fields. Missing
// fields are appended in key order so runs produce the same column order.
type DefaultValueMiddleware struct {
	Defaults map[string]any
}

func (m *DefaultValueMiddleware) Name() string { return "default_values" }

func (m *DefaultValueMiddleware) Process(rec *types.Record) (*types.Record, error) {
	keys := make([]string, 0, len(m.Defaults))
	for k := range m.Defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !rec.Has(key) {
			rec.Set(key, normalizeDefault(m.Defaults[key]))
		}
	}
	return rec, nil
}

// normalizeDefault maps the integer types a config decoder may produce onto
// int64, the record's integer type.
func normalizeDefault(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	default:
		return v
	}
}
