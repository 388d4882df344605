package persistence_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/xui/internal/logging"
	"github.com/aretw0/xui/pkg/adapters/memory"
	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockKV struct {
	mock.Mock
}

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockKV) Set(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *mockKV) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func TestAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	a := persistence.New(memory.NewStore())

	when := time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.UTC)
	rec := domain.Record{
		"theme":    "dark",
		"verified": true,
		"lastSeen": when,
		"prefs":    map[string]any{"since": when, "tags": []any{"a", "b"}},
	}

	require.NoError(t, a.Write(ctx, "app", rec))

	got := a.Read(ctx, "app")
	assert.Equal(t, "dark", got["theme"])
	assert.Equal(t, true, got["verified"])

	ts, ok := got["lastSeen"].(time.Time)
	require.True(t, ok, "date should come back typed, got %T", got["lastSeen"])
	assert.True(t, when.Equal(ts))

	prefs, ok := got["prefs"].(map[string]any)
	require.True(t, ok)
	nested, ok := prefs["since"].(time.Time)
	require.True(t, ok)
	assert.True(t, when.Equal(nested))
}

func TestAdapter_ReadMissingIsEmpty(t *testing.T) {
	a := persistence.New(memory.NewStore())
	got := a.Read(context.Background(), "never-written")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAdapter_ReadFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()

	t.Run("backend error", func(t *testing.T) {
		var logs bytes.Buffer
		kv := new(mockKV)
		kv.On("Get", mock.Anything, "app").Return(nil, errors.New("disk on fire"))

		a := persistence.New(kv, persistence.WithLogger(logging.NewJSON(&logs, slog.LevelDebug)))
		assert.Empty(t, a.Read(ctx, "app"))
		assert.Contains(t, logs.String(), "disk on fire")
		kv.AssertExpectations(t)
	})

	t.Run("malformed payload", func(t *testing.T) {
		store := memory.NewStore()
		require.NoError(t, store.Set(ctx, "app", []byte("{not json")))

		a := persistence.New(store)
		assert.Empty(t, a.Read(ctx, "app"))
	})

	t.Run("non object payload", func(t *testing.T) {
		store := memory.NewStore()
		require.NoError(t, store.Set(ctx, "app", []byte(`["a","b"]`)))

		a := persistence.New(store)
		assert.Empty(t, a.Read(ctx, "app"))
	})
}

func TestAdapter_WriteFailureIsWrapped(t *testing.T) {
	boom := errors.New("quota exceeded")
	kv := new(mockKV)
	kv.On("Set", mock.Anything, "app", mock.Anything).Return(boom)

	a := persistence.New(kv)
	err := a.Write(context.Background(), "app", domain.Record{"theme": "dark"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistenceWrite)
	assert.ErrorIs(t, err, boom)
	kv.AssertExpectations(t)
}

func TestAdapter_WriteOverwrites(t *testing.T) {
	ctx := context.Background()
	a := persistence.New(memory.NewStore())

	require.NoError(t, a.Write(ctx, "app", domain.Record{"a": "1", "b": "2"}))
	require.NoError(t, a.Write(ctx, "app", domain.Record{"a": "3"}))

	assert.Equal(t, domain.Record{"a": "3"}, a.Read(ctx, "app"))
}

func TestAdapter_Clear(t *testing.T) {
	ctx := context.Background()
	a := persistence.New(memory.NewStore())

	require.NoError(t, a.Write(ctx, "app", domain.Record{"a": "1"}))
	require.NoError(t, a.Clear(ctx, "app"))
	assert.Empty(t, a.Read(ctx, "app"))
	require.NoError(t, a.Clear(ctx, "app"))
}
