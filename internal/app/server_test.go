package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/dishlist/internal/config"
	"github.com/hitoshi/dishlist/internal/database"
	"github.com/hitoshi/dishlist/internal/metrics"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	databaseURL := "sqlite://" + filepath.Join(t.TempDir(), "dishlist.db")
	if err := database.RunMigrations(databaseURL); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	db, err := database.Open(databaseURL)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		DatabaseURL:            databaseURL,
		GoogleClientID:         "test-client-id",
		GoogleClientSecret:     "test-client-secret",
		GoogleRedirectURL:      "http://localhost:8080/auth/google/callback",
		SessionSecret:          "test-session-secret-32bytes-long!",
		SessionMaxAge:          3600,
		SessionCleanupInterval: time.Hour,
		RateLimitGeneral:       120,
		RateLimitMutation:      30,
		DishPageSize:           3,
		DishEnforceOwnership:   true,
		BaseURL:                "http://localhost:8080",
		CORSAllowedOrigin:      "http://localhost:3000",
	}

	srv := newServer(cfg, db, database.DialectSQLite, prometheus.NewRegistry())
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.handler)
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestNewServer_WiresOperationalEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, body := get(t, ts.URL+"/health")
	if status != http.StatusOK {
		t.Fatalf("/health status = %d, body = %s", status, body)
	}

	status, body = get(t, ts.URL+"/metrics")
	if status != http.StatusOK {
		t.Fatalf("/metrics status = %d", status)
	}
	for _, name := range []string{"dishlist_http_status_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("/metrics should expose %s", name)
		}
	}
}

func TestNewServer_AnonymousListReturnsEmptyPage(t *testing.T) {
	ts := newTestServer(t)

	status, body := get(t, ts.URL+"/api/rpc/dish:list")
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %s", status, body)
	}
	if !strings.Contains(body, `"dishes":[]`) || !strings.Contains(body, `"nextCursor":null`) {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestNewServer_ServesClientView(t *testing.T) {
	ts := newTestServer(t)

	status, body := get(t, ts.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "/view/session") {
		t.Errorf("page should load the session view: %s", body)
	}
}

func TestNewServer_LoginRedirectsToGoogle(t *testing.T) {
	ts := newTestServer(t)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(ts.URL + "/auth/google/login")
	if err != nil {
		t.Fatalf("GET /auth/google/login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "https://accounts.google.com/") || !strings.Contains(loc, "client_id=test-client-id") {
		t.Errorf("Location = %q", loc)
	}
}

func TestNewWorkerHandler_ExposesHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg).RecordSessionsCleaned(3)

	ts := httptest.NewServer(newWorkerHandler(nil, reg))
	defer ts.Close()

	if status, _ := get(t, ts.URL+"/health"); status != http.StatusOK {
		t.Errorf("/health status = %d", status)
	}
	_, body := get(t, ts.URL+"/metrics")
	if !strings.Contains(body, "dishlist_sessions_cleaned_total 3") {
		t.Errorf("/metrics should expose cleaned sessions: %s", body)
	}
	if status, _ := get(t, ts.URL+"/api/rpc/dish:list"); status != http.StatusNotFound {
		t.Errorf("worker should not serve the API, status = %d", status)
	}
}
