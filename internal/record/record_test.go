package record

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBoolLike(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected bool
	}{
		{"Yes", "Yes", true},
		{"yes", "yes", true},
		{"1", "1", true},
		{"Sí", "Sí", true},
		{"si", "si", true},
		{"SI", "SI", true},
		{"padded", "  si  ", true},
		{"true string", "TRUE", true},
		{"native true", true, true},
		{"int one", 1, true},
		{"json one", json.Number("1"), true},
		{"empty", "", false},
		{"no", "no", false},
		{"null", "null", false},
		{"undefined", "undefined", false},
		{"nil", nil, false},
		{"native false", false, false},
		{"zero", 0, false},
		{"two", 2, false},
		{"other text", "Recibió Respuesta", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToBoolLike(tt.input))
		})
	}
}

func TestRecord_BoolAbsentField(t *testing.T) {
	r := Record{"Status": "Enviado"}
	assert.False(t, r.Bool("Respondidos"))
}

func TestRecord_String(t *testing.T) {
	r := Record{
		"name":   "  Acme  ",
		"count":  json.Number("42"),
		"flag":   true,
		"nil":    nil,
		"float":  12.5,
		"int64":  int64(7),
		"bytes":  []byte("raw"),
		"stamp":  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		"struct": struct{}{},
	}

	assert.Equal(t, "Acme", r.String("name"))
	assert.Equal(t, "  Acme  ", r.Raw("name"))
	assert.Equal(t, "42", r.String("count"))
	assert.Equal(t, "true", r.String("flag"))
	assert.Equal(t, "", r.String("nil"))
	assert.Equal(t, "12.5", r.String("float"))
	assert.Equal(t, "7", r.String("int64"))
	assert.Equal(t, "raw", r.String("bytes"))
	assert.Equal(t, "2025-01-02T03:04:05Z", r.String("stamp"))
	assert.Equal(t, "", r.String("struct"))
	assert.Equal(t, "", r.String("missing"))
}

func TestRecord_Float(t *testing.T) {
	r := Record{
		"hours":  "3.5",
		"number": json.Number("12"),
		"int":    int32(4),
		"bad":    "two days",
		"empty":  "",
		"nan":    math.NaN(),
		"bool":   true,
	}

	v, ok := r.Float("hours")
	require.True(t, ok)
	assert.Equal(t, 3.5, v)

	v, ok = r.Float("number")
	require.True(t, ok)
	assert.Equal(t, 12.0, v)

	v, ok = r.Float("int")
	require.True(t, ok)
	assert.Equal(t, 4.0, v)

	for _, field := range []string{"bad", "empty", "nan", "bool", "missing"} {
		_, ok := r.Float(field)
		assert.False(t, ok, "field %s should not parse", field)
	}
}

func TestRecord_Present(t *testing.T) {
	r := Record{
		"a": "timeout",
		"b": "",
		"c": "null",
		"d": "undefined",
		"e": nil,
		"f": "   ",
	}

	assert.True(t, r.Present("a"))
	for _, f := range []string{"b", "c", "d", "e", "f", "missing"} {
		assert.False(t, r.Present(f), "field %s should not be present", f)
	}
}

func TestCloneAll(t *testing.T) {
	in := []Record{{"a": "1"}, {"b": "2"}}
	out := CloneAll(in)
	out[0]["a"] = "changed"

	assert.Equal(t, "1", in[0]["a"])
	assert.Len(t, out, 2)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		key      string
		expected int
		wantErr  bool
	}{
		{name: "bare array", body: `[{"Id":1},{"Id":2}]`, expected: 2},
		{name: "list envelope", body: `{"list":[{"Id":1}],"pageInfo":{}}`, expected: 1},
		{name: "data envelope", body: `{"data":[{"Id":1},{"Id":2},{"Id":3}]}`, expected: 3},
		{name: "custom key", body: `{"items":[{"Id":1}]}`, key: "items", expected: 1},
		{name: "object without rows", body: `{"message":"ok"}`, expected: 0},
		{name: "scalar body", body: `42`, expected: 0},
		{name: "empty body", body: ``, expected: 0},
		{name: "non-object elements skipped", body: `[{"Id":1},"x",3]`, expected: 1},
		{name: "malformed", body: `{"list":[`, wantErr: true},
		{name: "html error page", body: `<html>502</html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Decode([]byte(tt.body), tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, records)
			assert.Len(t, records, tt.expected)
		})
	}
}

func TestDecode_PreservesOrderAndNumbers(t *testing.T) {
	records, err := Decode([]byte(`[{"Id":3,"x":"c"},{"Id":1,"x":"a"},{"Id":2,"x":"b"}]`), "")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "c", records[0].String("x"))
	assert.Equal(t, "a", records[1].String("x"))
	assert.Equal(t, "b", records[2].String("x"))
	assert.Equal(t, json.Number("3"), records[0]["Id"])
}
