package session

import (
	"slices"
	"sync"
)

// registry keeps the ordered handler list of every field.
// A reverse index from handler to fields makes removal proportional to the
// number of fields the handler was registered on.
type registry struct {
	mu      sync.RWMutex
	byField map[string][]*Handler
	fields  map[*Handler]map[string]struct{}
}

func newRegistry() *registry {
	return &registry{
		byField: make(map[string][]*Handler),
		fields:  make(map[*Handler]map[string]struct{}),
	}
}

// add appends h to the field list. Adding the same handler twice to one
// field keeps its original position.
func (r *registry) add(field string, h *Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.fields[h]
	if !ok {
		set = make(map[string]struct{})
		r.fields[h] = set
	}
	if _, dup := set[field]; dup {
		return
	}
	set[field] = struct{}{}
	r.byField[field] = append(r.byField[field], h)
}

// remove drops h from every field it was registered on.
// It reports whether h was registered at all.
func (r *registry) remove(h *Handler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.fields[h]
	if !ok {
		return false
	}
	for field := range set {
		list := slices.DeleteFunc(r.byField[field], func(x *Handler) bool {
			return x == h
		})
		if len(list) == 0 {
			delete(r.byField, field)
			continue
		}
		r.byField[field] = list
	}
	delete(r.fields, h)
	return true
}

// handlers returns a copy of the field list, so registrations made while a
// Set is running do not change the in-flight invocation list.
func (r *registry) handlers(field string) []*Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byField[field])
}

func (r *registry) count(field string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byField[field])
}
