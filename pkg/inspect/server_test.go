package inspect

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vango-dev/reactobj/pkg/snapshot"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func newTestServer(t *testing.T, cfg *Config) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(cfg, map[string]any{"a": map[string]any{"b": 1, "c": 2}})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})
	return srv, ts
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServerValueRoutes(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	var v valueResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/v1/value?path=a.b", "", &v))
	assert.Equal(t, valueResponse{Path: "a.b", Found: true, Value: float64(1)}, v)

	v = valueResponse{}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/v1/value?path=a.x", "", &v))
	assert.False(t, v.Found)

	var changed map[string]bool
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, ts.URL+"/v1/value?path=a.b", "2", &changed))
	assert.True(t, changed["changed"])
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, ts.URL+"/v1/value?path=a.b", "2", &changed))
	assert.False(t, changed["changed"])

	v = valueResponse{}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/v1/value", "", &v))
	assert.Equal(t, map[string]any{"a": map[string]any{"b": float64(2), "c": float64(2)}}, v.Value)

	assert.Equal(t, http.StatusNoContent, doJSON(t, http.MethodPost, ts.URL+"/v1/invalidate?path=a", "", nil))

	var health map[string]string
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/healthz", "", &health))
	assert.Equal(t, "ok", health["status"])
}

func TestServerFarSequenceIndex(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	var changed map[string]bool
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, ts.URL+"/v1/value?path=a.list", "[1]", &changed))
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, ts.URL+"/v1/value?path=a.list.4611686018427387904", "2", &changed))
	assert.True(t, changed["changed"])

	var v valueResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/v1/value?path=a.list", "", &v))
	assert.Equal(t, map[string]any{"0": float64(1), "4611686018427387904": float64(2)}, v.Value)
}

func TestServerErrors(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{
			name:   "bad path",
			method: http.MethodGet,
			target: "/v1/value?path=" + url.QueryEscape(`a\q`),
			status: http.StatusBadRequest,
			code:   "R001",
		},
		{
			name:   "empty body",
			method: http.MethodPut,
			target: "/v1/value?path=a",
			status: http.StatusBadRequest,
			code:   "R002",
		},
		{
			name:   "malformed body",
			method: http.MethodPut,
			target: "/v1/value?path=a",
			body:   "{",
			status: http.StatusBadRequest,
			code:   "R002",
		},
		{
			name:   "bad invalidate path",
			method: http.MethodPost,
			target: "/v1/invalidate?path=" + url.QueryEscape(`\x`),
			status: http.StatusBadRequest,
			code:   "R001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp errorResponse
			status := doJSON(t, tt.method, ts.URL+tt.target, tt.body, &resp)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestServerWatch(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/watch?path=a.b"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var u Update
	require.NoError(t, conn.ReadJSON(&u))
	assert.NotEmpty(t, u.Watch)
	assert.Equal(t, "a.b", u.Path)
	assert.True(t, u.Found)
	assert.Equal(t, float64(1), u.Value)
	assert.Equal(t, 1, u.Run)

	// A sibling write is not delivered.
	doJSON(t, http.MethodPut, ts.URL+"/v1/value?path=a.c", "7", nil)
	doJSON(t, http.MethodPut, ts.URL+"/v1/value?path=a.b", "5", nil)

	var next Update
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, u.Watch, next.Watch)
	assert.Equal(t, float64(5), next.Value)
	assert.Equal(t, 2, next.Run)

	var deps []Dependency
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/v1/dependencies", "", &deps))
	require.Len(t, deps, 1)
	assert.Equal(t, "a.b", deps[0].Path)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	assert.Eventually(t, func() bool {
		var stats map[string]int
		doJSON(t, http.MethodGet, ts.URL+"/v1/stats", "", &stats)
		return stats["nodes"] == 0 && stats["records"] == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestServerWatchRejectsCrossOrigin(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/watch?path=a"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOriginChecks(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{name: "no origin", want: true},
		{name: "same origin", origin: "http://example.com", want: true},
		{name: "other origin", origin: "http://other.com", want: false},
		{name: "listed origin", origin: "http://other.com", allowed: []string{"http://other.com"}, want: true},
		{name: "wildcard", origin: "http://anything.io", allowed: []string{"*"}, want: true},
		{name: "malformed origin", origin: "://", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example.com/v1/watch", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			check := SameOriginCheck
			if tt.allowed != nil {
				check = AllowOrigins(tt.allowed...)
			}
			assert.Equal(t, tt.want, check(r))
		})
	}
}

func TestServerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := testConfig()
	cfg.Metrics = true
	cfg.Registry = reg
	_, ts := newTestServer(t, cfg)

	doJSON(t, http.MethodPut, ts.URL+"/v1/value?path=a.b", "3", nil)
	doJSON(t, http.MethodGet, ts.URL+"/v1/stats", "", nil)

	scrape := func() string {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	// Request metrics are recorded after the response is written.
	want := `reactobj_inspect_requests_total{method="PUT",route="/v1/value",status="200"} 1`
	require.Eventually(t, func() bool {
		return strings.Contains(scrape(), want)
	}, 5*time.Second, 10*time.Millisecond)

	text := scrape()
	assert.Contains(t, text, `reactobj_writes_total{result="changed"} 1`)
	assert.Contains(t, text, "reactobj_inspect_request_duration_seconds")
	assert.Contains(t, text, "reactobj_inspect_active_watches 0")
}

func TestServerMetricsDisabled(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	cfg := testConfig()
	cfg.Tracer = tp.Tracer("test")
	_, ts := newTestServer(t, cfg)

	doJSON(t, http.MethodGet, ts.URL+"/v1/stats", "", nil)

	// The span ends after the response is written.
	statsSpan := func() sdktrace.ReadOnlySpan {
		for _, span := range recorder.Ended() {
			if span.Name() == "inspect GET /v1/stats" {
				return span
			}
		}
		return nil
	}
	require.Eventually(t, func() bool { return statsSpan() != nil }, 5*time.Second, 10*time.Millisecond)

	span := statsSpan()
	assert.Contains(t, span.Attributes(), attribute.Int("http.status_code", http.StatusOK))
	assert.Contains(t, span.Attributes(), attribute.String("http.route", "/v1/stats"))
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_, err = srv.Hub().Stats(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestServerSnapshots(t *testing.T) {
	store, err := snapshot.NewDiskStore(t.TempDir(), 0)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Snapshots = store
	_, ts := newTestServer(t, cfg)

	var info snapshot.Info
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, ts.URL+"/v1/snapshots/base", "", &info))
	assert.Equal(t, "base", info.Name)

	doJSON(t, http.MethodPut, ts.URL+"/v1/value?path=a.b", "9", nil)

	var restored restoreResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/v1/snapshots/base/restore", "", &restored))
	assert.True(t, restored.Changed)

	var v valueResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/v1/value?path=a.b", "", &v))
	assert.Equal(t, float64(1), v.Value)

	var infos []snapshot.Info
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/v1/snapshots", "", &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "base", infos[0].Name)

	assert.Equal(t, http.StatusNoContent, doJSON(t, http.MethodDelete, ts.URL+"/v1/snapshots/base", "", nil))

	var resp errorResponse
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPost, ts.URL+"/v1/snapshots/base/restore", "", &resp))
	assert.Equal(t, "R051", resp.Code)

	resp = errorResponse{}
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPut, ts.URL+"/v1/snapshots/.bad", "", &resp))
	assert.Equal(t, "R050", resp.Code)
}

func TestServerSnapshotsDisabled(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, ts.URL+"/v1/snapshots", "", nil))
}
