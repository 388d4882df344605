package domain

import (
	"encoding/json"
	"fmt"
)

// EventKind discriminates subscription events.
type EventKind string

const (
	EventReady   EventKind = "ready"
	EventAdded   EventKind = "added"
	EventChanged EventKind = "changed"
	EventRemoved EventKind = "removed"
)

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventReady, EventAdded, EventChanged, EventRemoved:
		return true
	}
	return false
}

// DefaultIDField is the identifier field of documents unless configured otherwise.
const DefaultIDField = "_id"

// Document is one entry of a remote collection.
type Document map[string]any

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = CloneValue(v)
	}
	return out
}

// ID returns the document identifier normalized to a string key.
// Numeric identifiers decoded from JSON (float64) and native ints map to the same key.
func (d Document) ID(field string) (string, bool) {
	v, ok := d[field]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

// Event is a single mutation on a remote collection.
type Event struct {
	Kind             EventKind
	Document         Document
	ChangeSet        map[string]any
	PreviousDocument Document
}

// Ready builds a ready event.
func Ready() Event { return Event{Kind: EventReady} }

// Added builds an added event.
func Added(doc Document) Event { return Event{Kind: EventAdded, Document: doc} }

// Changed builds a changed event.
func Changed(doc Document, changeSet map[string]any, previous Document) Event {
	return Event{Kind: EventChanged, Document: doc, ChangeSet: changeSet, PreviousDocument: previous}
}

// Removed builds a removed event.
func Removed(doc Document) Event { return Event{Kind: EventRemoved, Document: doc} }

// EventMessage is the wire form of an Event.
// Document may be an object or a string holding an encoded object.
type EventMessage struct {
	Event            EventKind       `json:"event"`
	Document         json.RawMessage `json:"document,omitempty"`
	ChangeSet        json.RawMessage `json:"changeSet,omitempty"`
	PreviousDocument json.RawMessage `json:"previousDocument,omitempty"`
}
