package domain

import (
	"fmt"
	"time"
)

// ReservedKey is the configuration entry naming the durable-storage key.
// It can never be used as a field name.
const ReservedKey = "localStorageKey"

// Record maps declared field names to values.
type Record map[string]any

// Clone returns a copy of the record. Nested maps and slices are copied too,
// so callers can mutate the result freely.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies maps and slices; other values are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, sub := range t {
			out[k] = CloneValue(sub)
		}
		return out
	case Record:
		return t.Clone()
	case Document:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, sub := range t {
			out[i] = CloneValue(sub)
		}
		return out
	default:
		return v
	}
}

// FieldKind is the declared type of a session field.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindBool   FieldKind = "bool"
	KindDate   FieldKind = "date"
	KindJSON   FieldKind = "json"
)

// KindOf derives the declared kind from a default value.
func KindOf(v any) FieldKind {
	switch v.(type) {
	case string:
		return KindString
	case bool:
		return KindBool
	case time.Time, *time.Time:
		return KindDate
	default:
		return KindJSON
	}
}

// Accepts reports whether v is a valid value for the kind.
// A nil value is accepted for every kind.
func (k FieldKind) Accepts(v any) bool {
	if v == nil {
		return true
	}
	switch k {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindDate:
		switch v.(type) {
		case time.Time, *time.Time:
			return true
		}
		return false
	default:
		return true
	}
}

// Defaults declares the session fields and the durable key they persist under.
type Defaults struct {
	// Key identifies the durable record.
	Key string

	// Fields holds one entry per declared field with its default value.
	Fields map[string]any
}

// Validate checks that the key is set and that no field collides with it.
func (d Defaults) Validate() error {
	if d.Key == "" {
		return fmt.Errorf("%w: %s is required", ErrConfiguration, ReservedKey)
	}
	if _, clash := d.Fields[ReservedKey]; clash {
		return fmt.Errorf("%w: field name %q is reserved", ErrConfiguration, ReservedKey)
	}
	for name := range d.Fields {
		if name == "" {
			return fmt.Errorf("%w: empty field name", ErrConfiguration)
		}
	}
	return nil
}

// ParseDefaults reads the flat configuration surface:
//
//	{ <field>: <default>, ..., localStorageKey: "<key>" }
func ParseDefaults(raw map[string]any) (Defaults, error) {
	keyVal, ok := raw[ReservedKey]
	if !ok {
		return Defaults{}, fmt.Errorf("%w: %s is required", ErrConfiguration, ReservedKey)
	}
	key, ok := keyVal.(string)
	if !ok {
		return Defaults{}, fmt.Errorf("%w: %s must be a string, got %T", ErrConfiguration, ReservedKey, keyVal)
	}

	fields := make(map[string]any, len(raw))
	for name, v := range raw {
		if name == ReservedKey {
			continue
		}
		fields[name] = v
	}

	d := Defaults{Key: key, Fields: fields}
	if err := d.Validate(); err != nil {
		return Defaults{}, err
	}
	return d, nil
}

// ChangeRecord is passed to handlers on every successful set.
type ChangeRecord struct {
	Field         string `json:"field"`
	PreviousValue any    `json:"previousValue"`
	Value         any    `json:"value"`
}
