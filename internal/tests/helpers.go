package tests

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aixkai/naiveproxy/internal/backend"
	"github.com/aixkai/naiveproxy/internal/server"
)

// fixture_snapshot writes one snapshot file under dir at the given
// host/path-shaped base
func fixture_snapshot(t *testing.T, dir, base, contents string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(base))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create snapshot directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}
}

// fixture_cacheDir builds a small capture directory for www.example.org
func fixture_cacheDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	fixture_snapshot(t, dir, "www.example.org/index.html",
		"HTTP/1.1 200 OK\r\n"+
			"Content-Type: text/html\r\n"+
			"X-Original-Url: http://www.example.org/\r\n"+
			"\r\n"+
			"<html>front page</html>")
	fixture_snapshot(t, dir, "www.example.org/data.json",
		"HTTP/1.1 200 OK\r\n"+
			"Content-Type: application/json\r\n"+
			"\r\n"+
			`{"ok":true}`)
	return dir
}

// fixture_backend initializes a backend over the fixture cache dir
func fixture_backend(t *testing.T) *backend.Backend {
	t.Helper()
	b := backend.New()
	if err := b.Initialize(fixture_cacheDir(t)); err != nil {
		t.Fatalf("Failed to initialize backend: %v", err)
	}
	return b
}

// fixture_server starts an HTTP server over the backend and returns a
// client whose requests carry the given host
func fixture_server(t *testing.T, b *backend.Backend) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(server.New(b).Handler())
	t.Cleanup(ts.Close)
	return ts
}

// get performs a GET with an explicit Host header
func get(t *testing.T, ts *httptest.Server, host, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", ts.URL+path, nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Host = host
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}
