// Package record holds the loosely-typed rows fetched from the outreach record
// stores and the lenient accessors every calculator reads them through.
package record

import (
	"strings"
)

// Record is one flat row as received from a record store.
// Field presence, naming and value types vary by dataset.
type Record map[string]any

// Value returns the raw value stored under field.
func (r Record) Value(field string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[field]
	return v, ok
}

// String returns the trimmed string form of field, or "" when it is absent or nil.
func (r Record) String(field string) string {
	v, ok := r.Value(field)
	if !ok {
		return ""
	}
	return strings.TrimSpace(ToString(v))
}

// Raw returns the untrimmed string form of field.
func (r Record) Raw(field string) string {
	v, ok := r.Value(field)
	if !ok {
		return ""
	}
	return ToString(v)
}

// Float returns the numeric value of field. The second result is false when
// the field is absent, empty or not a number.
func (r Record) Float(field string) (float64, bool) {
	v, ok := r.Value(field)
	if !ok {
		return 0, false
	}
	return ToFloat64(v)
}

// Bool reports whether field holds a boolean-like true value.
func (r Record) Bool(field string) bool {
	v, ok := r.Value(field)
	if !ok {
		return false
	}
	return ToBoolLike(v)
}

// Present reports whether field holds a meaningful, non-empty value.
func (r Record) Present(field string) bool {
	s := strings.ToLower(r.String(field))
	switch s {
	case "", "null", "undefined", "nil", "<nil>":
		return false
	}
	return true
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneAll copies a record list so callers can keep it without sharing maps.
func CloneAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
