package record

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// TruthyTokens is the enumerated set of spellings that count as true for a
// boolean-like field, compared after trimming and lower-casing.
var TruthyTokens = []string{"yes", "si", "sí", "1", "true"}

var truthy = func() map[string]struct{} {
	m := make(map[string]struct{}, len(TruthyTokens))
	for _, t := range TruthyTokens {
		m[t] = struct{}{}
	}
	return m
}()

// ToBoolLike reports whether v is a boolean-like true value.
// Native true, the number 1 and any TruthyTokens spelling are true; every
// other value, including nil, "", "no", "null" and "undefined", is false.
func ToBoolLike(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		_, ok := truthy[strings.ToLower(strings.TrimSpace(b))]
		return ok
	case []byte:
		return ToBoolLike(string(b))
	}
	if f, ok := ToFloat64(v); ok {
		return f == 1
	}
	return false
}

// ToString converts a scalar value to its string form.
// Supports string, []byte, bool, json.Number, all int/uint/float kinds and time.Time.
func ToString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case time.Time:
		return s.Format(time.RFC3339)
	}
	if i, ok := toInt64(v); ok {
		return strconv.FormatInt(i, 10)
	}
	return ""
}

// ToFloat64 converts a value to float64.
// Numeric strings are parsed after trimming; NaN and Inf are rejected.
func ToFloat64(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case json.Number:
		p, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	case []byte:
		return ToFloat64(string(n))
	default:
		i, ok := toInt64(v)
		if !ok {
			return 0, false
		}
		f = float64(i)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInt64 converts the integer kinds to int64.
func toInt64(v any) (int64, bool) {
	switch i := v.(type) {
	case int64:
		return i, true
	case int:
		return int64(i), true
	case int32:
		return int64(i), true
	case int16:
		return int64(i), true
	case int8:
		return int64(i), true
	case uint:
		return int64(i), true
	case uint64:
		return int64(i), true
	case uint32:
		return int64(i), true
	case uint16:
		return int64(i), true
	case uint8:
		return int64(i), true
	default:
		return 0, false
	}
}
