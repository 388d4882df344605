package subscription

import (
	"slices"

	"github.com/aretw0/xui/pkg/domain"
)

// Collection is an ordered set of documents keyed by an identifier field.
// It is not safe for concurrent use.
type Collection struct {
	idField string
	docs    []domain.Document
	index   map[string]int
}

// NewCollection creates an empty collection keyed by idField.
// An empty idField selects domain.DefaultIDField.
func NewCollection(idField string) *Collection {
	if idField == "" {
		idField = domain.DefaultIDField
	}
	return &Collection{
		idField: idField,
		index:   make(map[string]int),
	}
}

// IDField returns the identifier field.
func (c *Collection) IDField() string {
	return c.idField
}

// Apply folds ev into the collection and reports whether it changed.
//
//   - added appends, or replaces in place when the id already exists.
//   - changed replaces the entry when the document carries fields besides
//     the id, otherwise merges the change set into it. Nil values in the
//     change set delete keys.
//   - removed excises the entry.
//
// Events without an id, events for unknown ids and ready events are no-ops.
func (c *Collection) Apply(ev domain.Event) bool {
	switch ev.Kind {
	case domain.EventAdded:
		id, ok := ev.Document.ID(c.idField)
		if !ok {
			return false
		}
		doc := ev.Document.Clone()
		if i, exists := c.index[id]; exists {
			c.docs[i] = doc
			return true
		}
		c.index[id] = len(c.docs)
		c.docs = append(c.docs, doc)
		return true

	case domain.EventChanged:
		id, ok := c.eventID(ev)
		if !ok {
			return false
		}
		i, exists := c.index[id]
		if !exists {
			return false
		}
		if c.hasFields(ev.Document) {
			doc := ev.Document.Clone()
			if _, ok := doc[c.idField]; !ok {
				doc[c.idField] = c.docs[i][c.idField]
			}
			c.docs[i] = doc
			return true
		}
		merged := c.docs[i].Clone()
		for k, v := range ev.ChangeSet {
			if k == c.idField {
				continue
			}
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = domain.CloneValue(v)
		}
		c.docs[i] = merged
		return true

	case domain.EventRemoved:
		id, ok := c.eventID(ev)
		if !ok {
			return false
		}
		i, exists := c.index[id]
		if !exists {
			return false
		}
		c.docs = slices.Delete(c.docs, i, i+1)
		delete(c.index, id)
		for j := i; j < len(c.docs); j++ {
			docID, _ := c.docs[j].ID(c.idField)
			c.index[docID] = j
		}
		return true
	}
	return false
}

func (c *Collection) eventID(ev domain.Event) (string, bool) {
	if id, ok := ev.Document.ID(c.idField); ok {
		return id, true
	}
	return ev.PreviousDocument.ID(c.idField)
}

// hasFields reports whether doc carries anything besides the id.
func (c *Collection) hasFields(doc domain.Document) bool {
	for k := range doc {
		if k != c.idField {
			return true
		}
	}
	return false
}

// Len returns the number of documents.
func (c *Collection) Len() int {
	return len(c.docs)
}

// Get returns a copy of the document with the given id.
func (c *Collection) Get(id string) (domain.Document, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.docs[i].Clone(), true
}

// Snapshot returns a fresh copy of the documents in order.
func (c *Collection) Snapshot() []domain.Document {
	out := make([]domain.Document, len(c.docs))
	for i, d := range c.docs {
		out[i] = d.Clone()
	}
	return out
}
