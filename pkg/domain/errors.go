package domain

import "errors"

// ErrConfiguration is returned when session defaults are malformed.
// It is fatal at construction time.
var ErrConfiguration = errors.New("invalid session configuration")

// ErrUnknownField is returned when a field is not declared in the defaults.
var ErrUnknownField = errors.New("unknown session field")

// ErrPersistenceWrite wraps failures writing the durable record.
var ErrPersistenceWrite = errors.New("failed to persist session state")

// ErrHandler is matched by every error raised from a change handler.
var ErrHandler = errors.New("session handler failed")

// ErrKeyNotFound is returned by key-value stores when a key has no value.
var ErrKeyNotFound = errors.New("key not found")
