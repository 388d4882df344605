package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/persistence/middleware"
	"github.com/aretw0/xui/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunKVStoreContract(t, mw(NewMockStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := NewMockStore()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	key := "app-session"
	plain := `{"token":"my-secret-sauce"}`

	if err := secureStore.Set(ctx, key, []byte(plain)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Underlying store should only see the envelope.
	stored, err := underlyingStore.Get(ctx, key)
	if err != nil {
		t.Fatalf("Underlying get failed: %v", err)
	}
	if strings.Contains(string(stored), "my-secret-sauce") {
		t.Fatalf("Expected secret to be hidden, found: %s", stored)
	}
	if !strings.HasPrefix(string(stored), "enc:v1:") {
		t.Fatal("Expected encrypted envelope prefix")
	}

	loaded, err := secureStore.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get via middleware failed: %v", err)
	}
	if string(loaded) != plain {
		t.Errorf("Expected %q, got %q", plain, loaded)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	key := "rotation"

	if err := secureStoreOld.Set(ctx, key, []byte("encrypted-with-old-key")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get with rotated key failed: %v", err)
	}
	if string(loaded) != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	if err := secureStoreNew.Set(ctx, key, []byte("encrypted-with-new-key")); err != nil {
		t.Fatalf("Set with new key failed: %v", err)
	}

	if _, err := secureStoreOld.Get(ctx, key); err == nil {
		t.Error("Expected failure when reading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainValues(t *testing.T) {
	underlyingStore := NewMockStore()
	_ = underlyingStore.Set(context.Background(), "plain", []byte(`{"theme":"dark"}`))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	if _, err := secure.Get(context.Background(), "plain"); err == nil {
		t.Error("Expected plain value to be rejected")
	}
	if _, err := secure.Get(context.Background(), "missing"); err != domain.ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.KVStore) ports.KVStore {
			return tagStore{KVStore: next, name: name, order: &order}
		}
	}

	store := middleware.Chain(NewMockStore(), tag("outer"), tag("inner"))
	_ = store.Set(context.Background(), "k", []byte("v"))

	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("unexpected order: %v", order)
	}
}

type tagStore struct {
	ports.KVStore
	name  string
	order *[]string
}

func (s tagStore) Set(ctx context.Context, key string, value []byte) error {
	*s.order = append(*s.order, s.name)
	return s.KVStore.Set(ctx, key, value)
}
