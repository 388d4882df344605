// Package ejson encodes records as JSON while keeping dates typed.
//
// A time.Time is written as {"$date": "<RFC3339Nano>"} so a round trip
// reproduces an equal instant. The decoder also accepts the numeric
// millisecond form {"$date": 1700000000000} written by other EJSON encoders.
package ejson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aretw0/xui/pkg/domain"
)

const dateKey = "$date"

// ErrNotObject is returned when a record decode sees a non-object payload.
var ErrNotObject = errors.New("ejson: payload is not an object")

// Marshal encodes v, replacing dates with their tagged form.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(encodeValue(v))
}

// Unmarshal decodes data and restores tagged dates.
func Unmarshal(data []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return decodeValue(raw)
}

// MarshalRecord encodes a record.
func MarshalRecord(r domain.Record) ([]byte, error) {
	return Marshal(map[string]any(r))
}

// UnmarshalRecord decodes an object into a record.
func UnmarshalRecord(data []byte) (domain.Record, error) {
	v, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, v)
	}
	return domain.Record(m), nil
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return map[string]any{dateKey: t.Format(time.RFC3339Nano)}
	case *time.Time:
		if t == nil {
			return nil
		}
		return map[string]any{dateKey: t.Format(time.RFC3339Nano)}
	case domain.Record:
		return encodeMap(t)
	case domain.Document:
		return encodeMap(t)
	case map[string]any:
		return encodeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, sub := range t {
			out[i] = encodeValue(sub)
		}
		return out
	case []domain.Document:
		out := make([]any, len(t))
		for i, sub := range t {
			out[i] = encodeMap(sub)
		}
		return out
	default:
		return v
	}
}

func encodeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = encodeValue(v)
	}
	return out
}

func decodeValue(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if raw, ok := t[dateKey]; ok && len(t) == 1 {
			return decodeDate(raw)
		}
		for k, sub := range t {
			dec, err := decodeValue(sub)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			t[k] = dec
		}
		return t, nil
	case []any:
		for i, sub := range t {
			dec, err := decodeValue(sub)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			t[i] = dec
		}
		return t, nil
	default:
		return v, nil
	}
}

func decodeDate(raw any) (time.Time, error) {
	switch d := raw.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339Nano, d)
		if err != nil {
			return time.Time{}, fmt.Errorf("ejson: invalid $date %q: %w", d, err)
		}
		return ts, nil
	case float64:
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return time.Time{}, fmt.Errorf("ejson: invalid $date %v", d)
		}
		return time.UnixMilli(int64(d)), nil
	default:
		return time.Time{}, fmt.Errorf("ejson: invalid $date type %T", raw)
	}
}

// decodeDocument accepts either an object or a JSON string holding an object.
func decodeDocument(raw json.RawMessage) (domain.Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, err
		}
		raw = []byte(inner)
	}
	rec, err := UnmarshalRecord(raw)
	if err != nil {
		return nil, err
	}
	return domain.Document(rec), nil
}
