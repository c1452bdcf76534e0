package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/gjson"

	"github.com/eugener/localcache/internal/cache"
	"github.com/eugener/localcache/internal/storage/sqlite"
	"github.com/eugener/localcache/internal/telemetry"
	"github.com/eugener/localcache/internal/worker"
)

func newTestHandler(t *testing.T, capacity int, ttl time.Duration) http.Handler {
	t.Helper()

	h, err := cache.New(capacity, ttl)
	if err != nil {
		t.Fatal(err)
	}

	pool := worker.NewPool(4)
	ctx, cancel := context.WithCancel(context.Background())
	poolDone := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(poolDone)
	}()
	t.Cleanup(func() {
		cancel()
		<-poolDone
	})

	origin, err := sqlite.New(filepath.Join(t.TempDir(), "origin.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { origin.Close() })

	reg := prometheus.NewRegistry()
	return New(Deps{
		Cache:        h,
		Pool:         pool,
		Origin:       origin,
		ReadyCheck:   origin.Ping,
		Metrics:      telemetry.NewMetrics(reg),
		PromGatherer: reg,
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCachePutGet(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, 10, 0)

	rec := doRequest(t, h, http.MethodPost, "/v1/cache", `{"key":"greeting","value":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", rec.Code, rec.Body.String())
	}
	putWorker := gjson.Get(rec.Body.String(), "worker").String()
	if putWorker == "" {
		t.Error("put response missing worker")
	}

	rec = doRequest(t, h, http.MethodGet, "/v1/cache/greeting", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if got := gjson.Get(body, "status").String(); got != "found" {
		t.Errorf("status = %q, want found", got)
	}
	if got := gjson.Get(body, "value").String(); got != "hello" {
		t.Errorf("value = %q, want hello", got)
	}
	// One key always lands on the same worker, so the get sees the put.
	if got := gjson.Get(body, "worker").String(); got != putWorker {
		t.Errorf("get worker = %q, put worker = %q", got, putWorker)
	}
}

func TestCacheGetMissing(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, 10, 0)

	rec := doRequest(t, h, http.MethodGet, "/v1/cache/absent", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := gjson.Get(rec.Body.String(), "status").String(); got != "not_found" {
		t.Errorf("status = %q, want not_found", got)
	}
}

func TestCachePutValidation(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, 10, 0)

	for _, body := range []string{
		`not json`,
		`{"value":"v"}`,
		`{"key":"k"}`,
	} {
		rec := doRequest(t, h, http.MethodPost, "/v1/cache", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestCacheEvictionThroughAPI(t *testing.T) {
	t.Parallel()

	// Single worker so every key shares one store of capacity 2.
	hc, err := cache.New(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	pool := worker.NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	h := New(Deps{Cache: hc, Pool: pool})

	doRequest(t, h, http.MethodPost, "/v1/cache", `{"key":"a","value":1}`)
	doRequest(t, h, http.MethodPost, "/v1/cache", `{"key":"b","value":2}`)
	doRequest(t, h, http.MethodPost, "/v1/cache", `{"key":"c","value":3}`)

	if rec := doRequest(t, h, http.MethodGet, "/v1/cache/a", ""); rec.Code != http.StatusNotFound {
		t.Errorf("a should have been evicted, status = %d", rec.Code)
	}
	for _, key := range []string{"b", "c"} {
		if rec := doRequest(t, h, http.MethodGet, "/v1/cache/"+key, ""); rec.Code != http.StatusOK {
			t.Errorf("%s should be resident, status = %d", key, rec.Code)
		}
	}
}

func TestItemsReadThrough(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, 10, 0)

	rec := doRequest(t, h, http.MethodPut, "/v1/items/user:1", `{"value":"alice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put item status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Write-through: the first read is already served from the cache.
	rec = doRequest(t, h, http.MethodGet, "/v1/items/user:1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get item status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if got := gjson.Get(body, "value").String(); got != "alice" {
		t.Errorf("value = %q, want alice", got)
	}
	if !gjson.Get(body, "cached").Bool() {
		t.Error("write-through item should be served from cache")
	}
}

func TestItemsOriginFill(t *testing.T) {
	t.Parallel()

	// TTL short enough that the cached copy expires and the next read
	// goes back to the origin.
	h := newTestHandler(t, 10, 100*time.Millisecond)

	doRequest(t, h, http.MethodPut, "/v1/items/user:2", `{"value":"bob"}`)
	time.Sleep(150 * time.Millisecond)

	rec := doRequest(t, h, http.MethodGet, "/v1/items/user:2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get item status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gjson.Get(rec.Body.String(), "cached").Bool() {
		t.Error("expired entry should have been refilled from origin")
	}

	// The origin fill re-cached it.
	rec = doRequest(t, h, http.MethodGet, "/v1/items/user:2", "")
	if !gjson.Get(rec.Body.String(), "cached").Bool() {
		t.Error("second read should be a cache hit")
	}
}

func TestItemsMissing(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, 10, 0)

	rec := doRequest(t, h, http.MethodGet, "/v1/items/absent", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := gjson.Get(rec.Body.String(), "status").String(); got != "not_found" {
		t.Errorf("status = %q, want not_found", got)
	}
}

func TestConfig(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, 10, 0)

	rec := doRequest(t, h, http.MethodGet, "/v1/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if got := gjson.Get(body, "capacity").Int(); got != 10 {
		t.Errorf("capacity = %d, want 10", got)
	}
	if got := gjson.Get(body, "workers").Int(); got != 4 {
		t.Errorf("workers = %d, want 4", got)
	}
	if !gjson.Get(body, "last_configured.capacity").Exists() {
		t.Error("last_configured.capacity missing")
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, 10, 0)
	rec := doRequest(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, 10, 0)
	rec := doRequest(t, h, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, 10, 0)

	rec := doRequest(t, h, http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("response missing X-Request-Id")
	}

	// A caller-supplied ID is echoed back.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if got := rec2.Header().Get("X-Request-Id"); got != "req-123" {
		t.Errorf("request id = %q, want req-123", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, 10, 0)

	doRequest(t, h, http.MethodGet, "/v1/cache/warm", "")

	rec := doRequest(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "localcache_cache_misses_total") {
		t.Error("metrics output missing localcache_cache_misses_total")
	}
}
