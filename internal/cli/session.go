package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/ejson"
	"github.com/aretw0/xui/pkg/session"
)

// SessionShow prints the hydrated session state.
func (a *App) SessionShow(ctx context.Context) error {
	s, err := a.OpenSession(ctx)
	if err != nil {
		return err
	}
	return printJSON(a.Out, s.Snapshot())
}

// SessionFields prints the declared fields and their kinds.
func (a *App) SessionFields(ctx context.Context) error {
	s, err := a.OpenSession(ctx)
	if err != nil {
		return err
	}
	fields := s.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.Out, "%s\t%s\n", name, fields[name])
	}
	return nil
}

// SessionGet prints one field.
func (a *App) SessionGet(ctx context.Context, field string) error {
	s, err := a.OpenSession(ctx)
	if err != nil {
		return err
	}
	if _, ok := s.Fields()[field]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}
	return printLine(a.Out, s.Get(field))
}

// SessionSet parses raw according to the field kind and sets it.
func (a *App) SessionSet(ctx context.Context, field, raw string, persist bool) error {
	s, err := a.OpenSession(ctx)
	if err != nil {
		return err
	}
	kind, ok := s.Fields()[field]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}
	value, err := parseValue(kind, raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s field %q: %w", kind, field, err)
	}

	report := session.NewHandler(func(_ context.Context, rec domain.ChangeRecord) error {
		prev, _ := ejson.Marshal(rec.PreviousValue)
		next, _ := ejson.Marshal(rec.Value)
		_, err := fmt.Fprintf(a.Out, "%s: %s -> %s\n", rec.Field, prev, next)
		return err
	})
	s.OnSet(field, report)
	defer s.OnSetRemove(report)

	if err := s.Set(ctx, field, value, session.Persist(persist)); err != nil {
		return err
	}
	if !persist {
		a.Logger.Warn("Value not persisted, use --persist to keep it", "field", field)
	}
	return nil
}

func parseValue(kind domain.FieldKind, raw string) (any, error) {
	switch kind {
	case domain.KindString:
		return raw, nil
	case domain.KindBool:
		return strconv.ParseBool(raw)
	case domain.KindDate:
		if raw == "now" {
			return time.Now().UTC(), nil
		}
		return time.Parse(time.RFC3339Nano, raw)
	default:
		v, err := ejson.Unmarshal([]byte(raw))
		if err != nil {
			var syntax *json.SyntaxError
			if errors.As(err, &syntax) {
				// Bare words are taken as strings.
				return raw, nil
			}
			return nil, err
		}
		return v, nil
	}
}
