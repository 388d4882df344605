package xui_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/xui"
	"github.com/aretw0/xui/pkg/adapters/memory"
	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/session"
	"github.com/aretw0/xui/pkg/subscription"
)

// ExampleNewSession shows handlers reacting to a persisted set.
func ExampleNewSession() {
	ctx := context.Background()
	kv := memory.NewStore()

	store, err := xui.NewSession(ctx, map[string]any{
		"theme":           "light",
		"localStorageKey": "app-session",
	}, kv)
	if err != nil {
		log.Fatal(err)
	}

	store.OnSet("theme", session.NewHandler(func(_ context.Context, rec domain.ChangeRecord) error {
		fmt.Printf("%s changed from %v to %v\n", rec.Field, rec.PreviousValue, rec.Value)
		return nil
	}))

	if err := store.Set(ctx, "theme", "dark", session.WithPersist()); err != nil {
		log.Fatal(err)
	}

	// A second store on the same slot starts from the persisted value.
	again, err := xui.NewSession(ctx, map[string]any{
		"theme":           "light",
		"localStorageKey": "app-session",
	}, kv)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("hydrated theme:", again.Get("theme"))

	// Output:
	// theme changed from light to dark
	// hydrated theme: dark
}

// ExampleNewSession_reservedKey shows the configuration error for a missing key.
func ExampleNewSession_reservedKey() {
	_, err := xui.NewSession(context.Background(), map[string]any{"theme": "light"}, memory.NewStore())
	fmt.Println(err)

	// Output:
	// invalid session configuration: localStorageKey is required
}

// Example_subscription reconciles a feed into an ordered list.
func Example_subscription() {
	feed := memory.NewFeed()

	sub, err := subscription.Start(context.Background(), feed,
		func(docs []domain.Document) {
			fmt.Println(docs)
		},
		subscription.WithIDField("id"),
		subscription.WithOnReady(func() { fmt.Println("ready") }),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer sub.Stop()

	feed.Publish(
		domain.Ready(),
		domain.Added(domain.Document{"id": 1, "name": "x"}),
		domain.Added(domain.Document{"id": 2, "name": "y"}),
		domain.Changed(domain.Document{"id": 1, "name": "x2"}, nil, nil),
		domain.Removed(domain.Document{"id": 2}),
	)

	// Output:
	// ready
	// [map[id:1 name:x]]
	// [map[id:1 name:x] map[id:2 name:y]]
	// [map[id:1 name:x2] map[id:2 name:y]]
	// [map[id:1 name:x2]]
}
