package session

import (
	"context"
	"testing"

	"github.com/aretw0/xui/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func nop(context.Context, domain.ChangeRecord) error { return nil }

func TestRegistry_ReverseIndex(t *testing.T) {
	r := newRegistry()
	a, b := NewHandler(nop), NewHandler(nop)

	r.add("x", a)
	r.add("y", a)
	r.add("x", b)

	assert.Equal(t, []*Handler{a, b}, r.handlers("x"))
	assert.Equal(t, []*Handler{a}, r.handlers("y"))

	assert.True(t, r.remove(a))
	assert.Equal(t, []*Handler{b}, r.handlers("x"))
	assert.Empty(t, r.handlers("y"))
	assert.NotContains(t, r.byField, "y")
	assert.NotContains(t, r.fields, a)

	assert.False(t, r.remove(a))
}

func TestRegistry_HandlersReturnsCopy(t *testing.T) {
	r := newRegistry()
	a, b := NewHandler(nop), NewHandler(nop)
	r.add("x", a)

	list := r.handlers("x")
	r.add("x", b)
	r.remove(a)

	assert.Equal(t, []*Handler{a}, list)
	assert.Equal(t, []*Handler{b}, r.handlers("x"))
}
