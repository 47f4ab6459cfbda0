package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// EnvelopeKeys are the conventional keys a record store may wrap its rows in.
var EnvelopeKeys = []string{"list", "data", "records", "rows"}

// Decode parses a response body into records.
//
// The body may be a bare JSON array of objects or an object exposing that
// array under envelopeKey (falling back to EnvelopeKeys). Any other valid
// JSON yields an empty list. Array elements that are not objects are skipped.
func Decode(data []byte, envelopeKey string) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		if err == io.EOF {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	switch v := body.(type) {
	case []any:
		return fromArray(v), nil
	case map[string]any:
		keys := EnvelopeKeys
		if envelopeKey != "" {
			keys = append([]string{envelopeKey}, EnvelopeKeys...)
		}
		for _, k := range keys {
			if arr, ok := v[k].([]any); ok {
				return fromArray(arr), nil
			}
		}
	}
	return []Record{}, nil
}

func fromArray(items []any) []Record {
	out := make([]Record, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}
