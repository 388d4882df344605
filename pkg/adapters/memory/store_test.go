package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/xui/pkg/adapters/memory"
	"github.com/aretw0/xui/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunKVStoreContract(t, store)
}

func TestMemoryStore_Keys(t *testing.T) {
	store := memory.NewStore()
	_ = store.Set(context.Background(), "a", []byte("1"))
	_ = store.Set(context.Background(), "b", []byte("2"))
	assert.ElementsMatch(t, []string{"a", "b"}, store.Keys())
}
