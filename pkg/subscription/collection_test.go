package subscription_test

import (
	"testing"

	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/subscription"
	"github.com/stretchr/testify/assert"
)

func TestCollection_Apply(t *testing.T) {
	tests := []struct {
		name    string
		events  []domain.Event
		want    []domain.Document
		changed []bool
	}{
		{
			name: "added keeps arrival order",
			events: []domain.Event{
				domain.Added(domain.Document{"_id": "a"}),
				domain.Added(domain.Document{"_id": "b"}),
			},
			want:    []domain.Document{{"_id": "a"}, {"_id": "b"}},
			changed: []bool{true, true},
		},
		{
			name: "added with existing id replaces in place",
			events: []domain.Event{
				domain.Added(domain.Document{"_id": "a", "v": 1}),
				domain.Added(domain.Document{"_id": "b"}),
				domain.Added(domain.Document{"_id": "a", "v": 2}),
			},
			want:    []domain.Document{{"_id": "a", "v": 2}, {"_id": "b"}},
			changed: []bool{true, true, true},
		},
		{
			name: "changed with full document replaces",
			events: []domain.Event{
				domain.Added(domain.Document{"_id": "a", "name": "x", "old": true}),
				domain.Changed(domain.Document{"_id": "a", "name": "x2"}, nil, nil),
			},
			want:    []domain.Document{{"_id": "a", "name": "x2"}},
			changed: []bool{true, true},
		},
		{
			name: "changed with id only merges change set",
			events: []domain.Event{
				domain.Added(domain.Document{"_id": "a", "name": "x", "gone": 1}),
				domain.Changed(domain.Document{"_id": "a"}, map[string]any{"name": "x2", "gone": nil}, nil),
			},
			want:    []domain.Document{{"_id": "a", "name": "x2"}},
			changed: []bool{true, true},
		},
		{
			name: "changed resolves id from previous document",
			events: []domain.Event{
				domain.Added(domain.Document{"_id": "a", "n": 1}),
				domain.Changed(nil, map[string]any{"n": 2}, domain.Document{"_id": "a", "n": 1}),
			},
			want:    []domain.Document{{"_id": "a", "n": 2}},
			changed: []bool{true, true},
		},
		{
			name: "changed unknown id is a no-op",
			events: []domain.Event{
				domain.Added(domain.Document{"_id": "a"}),
				domain.Changed(domain.Document{"_id": "zz", "x": 1}, nil, nil),
			},
			want:    []domain.Document{{"_id": "a"}},
			changed: []bool{true, false},
		},
		{
			name: "removed excises and keeps order",
			events: []domain.Event{
				domain.Added(domain.Document{"_id": "a"}),
				domain.Added(domain.Document{"_id": "b"}),
				domain.Added(domain.Document{"_id": "c"}),
				domain.Removed(domain.Document{"_id": "b"}),
				domain.Changed(domain.Document{"_id": "c", "v": 1}, nil, nil),
			},
			want:    []domain.Document{{"_id": "a"}, {"_id": "c", "v": 1}},
			changed: []bool{true, true, true, true, true},
		},
		{
			name: "removed unknown id is a no-op",
			events: []domain.Event{
				domain.Added(domain.Document{"_id": "a"}),
				domain.Removed(domain.Document{"_id": "missing"}),
			},
			want:    []domain.Document{{"_id": "a"}},
			changed: []bool{true, false},
		},
		{
			name: "documents without id are ignored",
			events: []domain.Event{
				domain.Added(domain.Document{"name": "anon"}),
				domain.Ready(),
			},
			want:    []domain.Document{},
			changed: []bool{false, false},
		},
		{
			name: "numeric ids from json match native ints",
			events: []domain.Event{
				domain.Added(domain.Document{"_id": 1, "name": "x"}),
				domain.Removed(domain.Document{"_id": float64(1)}),
			},
			want:    []domain.Document{},
			changed: []bool{true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := subscription.NewCollection("")
			var got []bool
			for _, ev := range tt.events {
				got = append(got, c.Apply(ev))
			}
			assert.Equal(t, tt.changed, got)
			assert.Equal(t, tt.want, c.Snapshot())
			assert.Equal(t, len(tt.want), c.Len())
		})
	}
}

func TestCollection_CustomIDField(t *testing.T) {
	c := subscription.NewCollection("id")
	assert.Equal(t, "id", c.IDField())

	c.Apply(domain.Added(domain.Document{"id": 1, "name": "x"}))
	c.Apply(domain.Added(domain.Document{"_id": 1, "name": "ignored"}))

	doc, ok := c.Get("1")
	assert.True(t, ok)
	assert.Equal(t, "x", doc["name"])
	assert.Equal(t, 1, c.Len())
}

func TestCollection_SnapshotIsIsolated(t *testing.T) {
	c := subscription.NewCollection("")
	src := domain.Document{"_id": "a", "tags": []any{"x"}}
	c.Apply(domain.Added(src))

	src["tags"].([]any)[0] = "mutated-source"
	snap := c.Snapshot()
	snap[0]["_id"] = "mutated-snapshot"

	assert.Equal(t, []domain.Document{{"_id": "a", "tags": []any{"x"}}}, c.Snapshot())
}
