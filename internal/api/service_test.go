package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmdmdm-nz/iwmon/internal/assoc"
	"github.com/dmdmdm-nz/iwmon/internal/iwevent"
	"github.com/dmdmdm-nz/iwmon/internal/runtime"
	"github.com/dmdmdm-nz/iwmon/pkg/version"
)

// mockSource is a test double for the association service.
type mockSource struct {
	mu      sync.Mutex
	running bool
	status  assoc.Status
	subs    []*runtime.SubQueue[assoc.AssociationEvent]
}

func (m *mockSource) Subscribe() (<-chan assoc.AssociationEvent, func()) {
	sub := runtime.NewSubQueue[assoc.AssociationEvent](8, 0)
	sub.SetPaused(false)
	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
	return sub.Chan(), sub.Close
}

func (m *mockSource) Status() assoc.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockSource) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockSource) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *mockSource) publish(ev assoc.AssociationEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs {
		sub.Enqueue(ev)
	}
}

func (m *mockSource) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs {
		sub.Close()
	}
}

func newTestServer(t *testing.T, src EventSource) *httptest.Server {
	t.Helper()
	s := NewService("127.0.0.1", 0)
	if src != nil {
		s.AttachAssoc(src)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &mockSource{})

	resp, _ := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &mockSource{})

	resp, err := http.Post(srv.URL+"/health", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestReady(t *testing.T) {
	src := &mockSource{}
	srv := newTestServer(t, src)

	resp, _ := get(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	src.mu.Lock()
	src.running = true
	src.mu.Unlock()

	resp, _ = get(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReady_NoSource(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, _ := get(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/status")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestVersion(t *testing.T) {
	srv := newTestServer(t, &mockSource{})

	resp, body := get(t, srv.URL+"/version")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(body), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.Equal(t, version.CommitHash, info.Commit)
}

func TestStatus(t *testing.T) {
	last := assoc.AssociationEvent{
		ID:   "5f0c6f0e-3c5d-4a8e-9a52-0f7b8c1d2e3f",
		Kind: iwevent.AssociationNew,
		Time: time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC),
	}
	src := &mockSource{status: assoc.Status{
		State:      "running",
		Associated: true,
		LastEvent:  &last,
		Counts: map[iwevent.EventKind]int{
			iwevent.AssociationNew:  2,
			iwevent.AssociationLost: 1,
		},
	}}
	srv := newTestServer(t, src)

	resp, body := get(t, srv.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st assoc.Status
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	assert.Equal(t, "running", st.State)
	assert.True(t, st.Associated)
	require.NotNil(t, st.LastEvent)
	assert.Equal(t, last.ID, st.LastEvent.ID)
	assert.True(t, last.Time.Equal(st.LastEvent.Time))
	assert.Equal(t, 2, st.Counts[iwevent.AssociationNew])
	assert.Contains(t, body, `"ASSOCIATION_LOST":1`)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, &mockSource{})

	get(t, srv.URL+"/health")
	resp, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "iwmon_http_requests_total")
	assert.Contains(t, body, `path="/health"`)
}

func dialEvents(t *testing.T, srv *httptest.Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c, ctx
}

func TestEventsStream(t *testing.T) {
	src := &mockSource{}
	srv := newTestServer(t, src)

	c, ctx := dialEvents(t, srv)
	require.Eventually(t, func() bool { return src.subscribers() == 1 }, time.Second, 5*time.Millisecond)

	sent := []assoc.AssociationEvent{
		{ID: "a", Kind: iwevent.AssociationNew, Time: time.Now().UTC()},
		{ID: "b", Kind: iwevent.AssociationLost, Time: time.Now().UTC()},
	}
	for _, ev := range sent {
		src.publish(ev)
	}

	for _, want := range sent {
		var got assoc.AssociationEvent
		require.NoError(t, wsjson.Read(ctx, c, &got))
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Kind, got.Kind)
	}
}

func TestEventsStream_SourceClosed(t *testing.T) {
	src := &mockSource{}
	srv := newTestServer(t, src)

	c, ctx := dialEvents(t, srv)
	require.Eventually(t, func() bool { return src.subscribers() == 1 }, time.Second, 5*time.Millisecond)

	src.closeAll()

	var ev assoc.AssociationEvent
	err := wsjson.Read(ctx, c, &ev)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}

func TestService_StartRequiresSource(t *testing.T) {
	s := NewService("127.0.0.1", 0)
	assert.Error(t, s.Start(context.Background()))
}

func TestService_StartAndClose(t *testing.T) {
	s := NewService("127.0.0.1", 0)
	s.AttachAssoc(&mockSource{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Start to return")
	}
	require.NotPanics(t, func() { _ = s.Close() })
}
