package session

import (
	"context"
	"fmt"

	"github.com/aretw0/xui/pkg/domain"
	"github.com/google/uuid"
)

// HandlerFunc reacts to a change of one field.
type HandlerFunc func(ctx context.Context, rec domain.ChangeRecord) error

// Handler is a registered change callback.
// Handlers are compared by pointer: two handlers built from the same
// function are distinct and can be removed independently.
type Handler struct {
	id string
	fn HandlerFunc
}

// NewHandler wraps fn into a Handler with a fresh ID.
func NewHandler(fn HandlerFunc) *Handler {
	if fn == nil {
		panic("session: nil handler func")
	}
	return &Handler{
		id: uuid.NewString(),
		fn: fn,
	}
}

// ID returns the identifier used in logs and errors.
func (h *Handler) ID() string {
	return h.id
}

// HandlerError reports the handler that stopped a Set.
type HandlerError struct {
	Field     string
	HandlerID string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s on field %q failed: %v", e.HandlerID, e.Field, e.Err)
}

// Unwrap exposes both domain.ErrHandler and the cause.
func (e *HandlerError) Unwrap() []error {
	return []error{domain.ErrHandler, e.Err}
}
