package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Well-known record fields.
const (
	FieldTimestamp                 = "timestamp"
	FieldUltimaActualizacion       = "ultimaActualizacion"
	FieldCircuitosEscrutados       = "circuitosEscrutados"
	FieldTotalCircuitos            = "totalCircuitos"
	FieldCircuitosConObservaciones = "circuitosConObservaciones"
	FieldTotalHabilitados          = "totalHabilitados"

	// PartyFieldPrefix prefixes every per-party vote count.
	PartyFieldPrefix = "votos_"
)

// TimestampLayout is how capture times are written out: ISO-8601 local time
// with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Record is one scraped snapshot: a sparse, ordered mapping from field name
// to value. Values are string, int64 or time.Time.
//
// Keys keep the order in which they were first set. Setting an existing key
// replaces the value in place.
type Record struct {
	// Source is the page URL the record was captured from.
	Source string

	// District is the district code the page was switched to.
	District string

	keys   []string
	fields map[string]any
}

// NewRecord creates an empty Record for a source page and district.
func NewRecord(source, district string) *Record {
	return &Record{
		Source:   source,
		District: district,
		fields:   make(map[string]any),
	}
}

// Set sets a field value.
func (r *Record) Set(key string, value any) {
	if r.fields == nil {
		r.fields = make(map[string]any)
	}
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = value
}

// Get retrieves a field value.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// GetString retrieves a field value as a string.
func (r *Record) GetString(key string) string {
	v, ok := r.fields[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// GetInt retrieves an integer field.
func (r *Record) GetInt(key string) (int64, bool) {
	switch v := r.fields[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// Timestamp returns the capture time, if set.
func (r *Record) Timestamp() (time.Time, bool) {
	t, ok := r.fields[FieldTimestamp].(time.Time)
	return t, ok
}

// Has returns true if the field exists.
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Delete removes a field.
func (r *Record) Delete(key string) {
	if _, ok := r.fields[key]; !ok {
		return
	}
	delete(r.fields, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns all field names in insertion order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// Parties returns the per-party vote fields in insertion order.
func (r *Record) Parties() []string {
	var out []string
	for _, k := range r.keys {
		if len(k) > len(PartyFieldPrefix) && k[:len(PartyFieldPrefix)] == PartyFieldPrefix {
			out = append(out, k)
		}
	}
	return out
}

// ToMap returns a shallow copy of the fields, with times left as time.Time.
func (r *Record) ToMap() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// FlatValue returns the string form of a single field as it appears in a
// tabular export.
func (r *Record) FlatValue(key string) string {
	v, ok := r.fields[key]
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// ToFlatMap returns a flat map suitable for CSV export.
func (r *Record) ToFlatMap() map[string]string {
	flat := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		flat[k] = FormatValue(v)
	}
	return flat
}

// Clone creates a copy of the record.
func (r *Record) Clone() *Record {
	clone := &Record{
		Source:   r.Source,
		District: r.District,
		keys:     append([]string(nil), r.keys...),
		fields:   make(map[string]any, len(r.fields)),
	}
	for k, v := range r.fields {
		clone.fields[k] = v
	}
	return clone
}

// MarshalJSON encodes the record as a JSON object whose keys keep the
// record's field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		v := r.fields[k]
		if t, ok := v.(time.Time); ok {
			v = t.Format(TimestampLayout)
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the record, keeping key order.
// Integral numbers decode as int64; everything else keeps its JSON type.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}

	r.keys = nil
	r.fields = make(map[string]any)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected string key, got %v", tok)
		}

		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record: decode %q: %w", key, err)
		}
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				v = i
			} else {
				v = n.String()
			}
		}
		r.Set(key, v)
	}

	_, err = dec.Token()
	return err
}

// FormatValue renders a record value as a table cell.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(TimestampLayout)
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
