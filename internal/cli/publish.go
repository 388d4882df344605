package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/ejson"
)

// PublishOptions describes one event given on the command line.
type PublishOptions struct {
	Kind      string
	Document  string
	ChangeSet string
	Previous  string
}

// Event builds the domain event from raw EJSON arguments.
func (o PublishOptions) Event() (domain.Event, error) {
	ev := domain.Event{Kind: domain.EventKind(o.Kind)}
	if !ev.Kind.Valid() {
		return domain.Event{}, fmt.Errorf("unknown event kind %q", o.Kind)
	}

	var err error
	if ev.Document, err = parseDocument(o.Document); err != nil {
		return domain.Event{}, fmt.Errorf("document: %w", err)
	}
	if ev.PreviousDocument, err = parseDocument(o.Previous); err != nil {
		return domain.Event{}, fmt.Errorf("previous document: %w", err)
	}
	cs, err := parseDocument(o.ChangeSet)
	if err != nil {
		return domain.Event{}, fmt.Errorf("change set: %w", err)
	}
	if cs != nil {
		ev.ChangeSet = map[string]any(cs)
	}

	if ev.Kind != domain.EventReady && ev.Document == nil && ev.PreviousDocument == nil {
		return domain.Event{}, fmt.Errorf("%s event needs a document", ev.Kind)
	}
	return ev, nil
}

func parseDocument(raw string) (domain.Document, error) {
	if raw == "" {
		return nil, nil
	}
	rec, err := ejson.UnmarshalRecord([]byte(raw))
	if err != nil {
		return nil, err
	}
	return domain.Document(rec), nil
}

// PublishEvent sends one event to collection.
func (a *App) PublishEvent(ctx context.Context, collection string, opts PublishOptions) error {
	ev, err := opts.Event()
	if err != nil {
		return err
	}
	if err := a.Publish(ctx, collection, ev); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "published %s to %s\n", ev.Kind, collection)
	return nil
}
