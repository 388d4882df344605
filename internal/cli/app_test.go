package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	xredis "github.com/aretw0/xui/pkg/adapters/redis"
	"github.com/aretw0/xui/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the watch goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xui.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestApp(t *testing.T, body string) (*App, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	app, err := NewApp(Options{ConfigPath: writeConfig(t, body), Out: out})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app, out
}

func sessionConfig(storePath string, extra string) string {
	return `
store:
  driver: file
  path: ` + storePath + `
` + extra + `
session:
  fields:
    theme: light
    verified: false
    lastSeen: "2024-01-01T00:00:00Z"
    prefs: {}
    localStorageKey: app-session
  dates: [lastSeen]
`
}

func TestApp_SessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	storePath := t.TempDir()
	cfg := sessionConfig(storePath, "")

	app, out := newTestApp(t, cfg)
	require.NoError(t, app.SessionSet(ctx, "theme", "dark", true))
	assert.Contains(t, out.String(), `theme: "light" -> "dark"`)

	require.NoError(t, app.SessionSet(ctx, "verified", "true", false))

	// A new process sees only persisted values.
	again, out2 := newTestApp(t, cfg)
	require.NoError(t, again.SessionGet(ctx, "theme"))
	require.NoError(t, again.SessionGet(ctx, "verified"))
	assert.Equal(t, "\"dark\"\nfalse\n", out2.String())

	show, out3 := newTestApp(t, cfg)
	require.NoError(t, show.SessionShow(ctx))
	var state map[string]any
	require.NoError(t, json.Unmarshal([]byte(out3.String()), &state))
	assert.Equal(t, "dark", state["theme"])
	assert.Equal(t, map[string]any{"$date": "2024-01-01T00:00:00Z"}, state["lastSeen"])
}

func TestApp_SessionFields(t *testing.T) {
	app, out := newTestApp(t, sessionConfig(t.TempDir(), ""))
	require.NoError(t, app.SessionFields(context.Background()))
	assert.Equal(t, "lastSeen\tdate\nprefs\tjson\ntheme\tstring\nverified\tbool\n", out.String())
}

func TestApp_SessionErrors(t *testing.T) {
	ctx := context.Background()
	app, _ := newTestApp(t, sessionConfig(t.TempDir(), ""))

	assert.ErrorIs(t, app.SessionGet(ctx, "ghost"), domain.ErrUnknownField)
	assert.ErrorIs(t, app.SessionSet(ctx, "ghost", "x", false), domain.ErrUnknownField)
	assert.Error(t, app.SessionSet(ctx, "verified", "maybe", false))
	assert.Error(t, app.SessionSet(ctx, "lastSeen", "yesterday", false))
}

func TestApp_EncryptedStore(t *testing.T) {
	ctx := context.Background()
	storePath := t.TempDir()
	cfg := sessionConfig(storePath, "  encryption_key: "+strings.Repeat("ab", 32))

	app, _ := newTestApp(t, cfg)
	require.NoError(t, app.SessionSet(ctx, "theme", "midnight", true))

	files, err := filepath.Glob(filepath.Join(storePath, "*"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "midnight")

	again, out := newTestApp(t, cfg)
	require.NoError(t, again.SessionGet(ctx, "theme"))
	assert.Equal(t, "\"midnight\"\n", out.String())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		kind    domain.FieldKind
		raw     string
		want    any
		wantErr bool
	}{
		{domain.KindString, "42", "42", false},
		{domain.KindBool, "true", true, false},
		{domain.KindBool, "nah", nil, true},
		{domain.KindDate, "2024-05-06T07:08:09Z", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), false},
		{domain.KindDate, "tomorrow", nil, true},
		{domain.KindJSON, `{"a":[1,2]}`, map[string]any{"a": []any{1.0, 2.0}}, false},
		{domain.KindJSON, "plain", "plain", false},
		{domain.KindJSON, `{"$date":"2024-05-06T07:08:09Z"}`, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.raw, func(t *testing.T) {
			got, err := parseValue(tt.kind, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	now, err := parseValue(domain.KindDate, "now")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), now.(time.Time), time.Minute)
}

func TestPublishOptions_Event(t *testing.T) {
	ev, err := PublishOptions{Kind: "changed", Document: `{"_id":"a"}`, ChangeSet: `{"n":2}`, Previous: `{"_id":"a","n":1}`}.Event()
	require.NoError(t, err)
	assert.Equal(t, domain.Changed(domain.Document{"_id": "a"}, map[string]any{"n": 2.0}, domain.Document{"_id": "a", "n": 1.0}), ev)

	ev, err = PublishOptions{Kind: "ready"}.Event()
	require.NoError(t, err)
	assert.Equal(t, domain.Ready(), ev)

	_, err = PublishOptions{Kind: "added"}.Event()
	assert.Error(t, err)
	_, err = PublishOptions{Kind: "exploded"}.Event()
	assert.Error(t, err)
	_, err = PublishOptions{Kind: "added", Document: "[1]"}.Event()
	assert.Error(t, err)
}

func redisConfig(addr string) string {
	return `
store:
  driver: redis
  redis:
    addr: ` + addr + `
transport:
  kind: redis
`
}

func TestApp_WatchAndPublishOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	app, out := newTestApp(t, redisConfig(mr.Addr()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Watch(ctx, "todos") }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(xredis.Channel("todos"))[xredis.Channel("todos")] == 1
	}, 2*time.Second, 10*time.Millisecond)

	pub, pubOut := newTestApp(t, redisConfig(mr.Addr()))
	require.NoError(t, pub.PublishEvent(context.Background(), "todos", PublishOptions{Kind: "added", Document: `{"_id":"a","title":"milk"}`}))
	require.NoError(t, pub.PublishEvent(context.Background(), "todos", PublishOptions{Kind: "ready"}))
	assert.Contains(t, pubOut.String(), "published added to todos")

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `[{"_id":"a","title":"milk"}]`)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

func TestApp_ServerBridgesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	app, _ := newTestApp(t, redisConfig(mr.Addr()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := app.NewServer(ctx, []string{"todos"})
	require.NoError(t, err)
	defer srv.Close()

	require.NoError(t, app.Publish(ctx, "todos", domain.Added(domain.Document{"_id": "a"})))
	require.Eventually(t, func() bool {
		return len(srv.Hub.Documents("todos")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	app, out := newTestApp(t, "transport:\n  kind: sse\n")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv, err := app.NewServer(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serveOn(ctx, ln, srv.Handler) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("serve did not stop")
	}
	assert.Contains(t, out.String(), "stopped gracefully")
}
