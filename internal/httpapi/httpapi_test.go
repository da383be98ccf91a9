package httpapi

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/config"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestServer(t *testing.T, db *sql.DB, logs *bytes.Buffer) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(logs, nil))
	srv := NewServer(config.Collector{HTTPAddr: ":0"}, NewMux(db), logger)
	ts := httptest.NewServer(srv.Handler)

	t.Cleanup(ts.Close)
	return ts
}

func mustGet(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, openDB(t), &bytes.Buffer{})

	resp := mustGet(t, ts.Client(), ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body.status=%q want=%q", body["status"], "ok")
	}
}

func TestHealthz_DatabaseDown(t *testing.T) {
	db := openDB(t)
	ts := newTestServer(t, db, &bytes.Buffer{})
	_ = db.Close()

	resp := mustGet(t, ts.Client(), ts.URL+"/healthz")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusInternalServerError)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if body["message"] != "failed to check database connectivity" {
		t.Fatalf("message=%v", body["message"])
	}
}

func TestRouting_UnknownRoute(t *testing.T) {
	ts := newTestServer(t, openDB(t), &bytes.Buffer{})

	resp := mustGet(t, ts.Client(), ts.URL+"/does-not-exist")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestRouting_WrongMethod(t *testing.T) {
	ts := newTestServer(t, openDB(t), &bytes.Buffer{})

	resp, err := ts.Client().Post(ts.URL+"/healthz", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestRequestLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h := requestLogger(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status=%d want=%d", rec.Code, http.StatusTeapot)
	}
	out := logs.String()
	for _, want := range []string{`msg="http request"`, "method=GET", "path=/nope", "status=418", "duration_ms="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
