package ejson

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/xui/pkg/domain"
)

// DecodeEvent parses a wire message into an Event.
func DecodeEvent(data []byte) (domain.Event, error) {
	var msg domain.EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Event{}, fmt.Errorf("ejson: invalid event message: %w", err)
	}
	if !msg.Event.Valid() {
		return domain.Event{}, fmt.Errorf("ejson: unknown event kind %q", msg.Event)
	}

	ev := domain.Event{Kind: msg.Event}
	var err error
	if ev.Document, err = decodeDocument(msg.Document); err != nil {
		return domain.Event{}, fmt.Errorf("ejson: document: %w", err)
	}
	if ev.PreviousDocument, err = decodeDocument(msg.PreviousDocument); err != nil {
		return domain.Event{}, fmt.Errorf("ejson: previousDocument: %w", err)
	}
	changeSet, err := decodeDocument(msg.ChangeSet)
	if err != nil {
		return domain.Event{}, fmt.Errorf("ejson: changeSet: %w", err)
	}
	if changeSet != nil {
		ev.ChangeSet = map[string]any(changeSet)
	}
	return ev, nil
}

// EncodeEvent renders an Event in wire form with object-valued documents.
func EncodeEvent(ev domain.Event) ([]byte, error) {
	msg := domain.EventMessage{Event: ev.Kind}
	var err error
	if msg.Document, err = encodeRaw(ev.Document); err != nil {
		return nil, err
	}
	if msg.PreviousDocument, err = encodeRaw(ev.PreviousDocument); err != nil {
		return nil, err
	}
	if ev.ChangeSet != nil {
		if msg.ChangeSet, err = Marshal(ev.ChangeSet); err != nil {
			return nil, err
		}
	}
	return json.Marshal(msg)
}

func encodeRaw(doc domain.Document) (json.RawMessage, error) {
	if doc == nil {
		return nil, nil
	}
	return Marshal(doc)
}
