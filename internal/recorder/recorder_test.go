package recorder

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aixkai/naiveproxy/internal/cache"
)

func fixtureExchange(t *testing.T, rawURL string) (*http.Request, *http.Response) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	req := &http.Request{Method: "GET", URL: u, Host: u.Host}
	resp := &http.Response{
		Proto:      "HTTP/1.1",
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       io.NopCloser(strings.NewReader("hello")),
	}
	return req, resp
}

func TestSaveWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	rec := New(dir)

	req, resp := fixtureExchange(t, "http://example.com/api/data")
	if err := rec.Save(req, resp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(dir, "example.com", "api", "data")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot missing at %s: %v", path, err)
	}

	// The proxy must still be able to relay the body after capture.
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "hello" {
		t.Errorf("relayed body = %q, want hello", body)
	}
}

func TestSaveRootPathUsesIndexHTML(t *testing.T) {
	dir := t.TempDir()
	rec := New(dir)

	req, resp := fixtureExchange(t, "http://example.com/")
	if err := rec.Save(req, resp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(dir, "example.com", "index.html")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot missing at %s: %v", path, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := New(dir)

	req, resp := fixtureExchange(t, "http://example.com/greeting")
	if err := rec.Save(req, resp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	resource, err := cache.ReadResource(dir, filepath.Join(dir, "example.com", "greeting"))
	if err != nil {
		t.Fatalf("ReadResource() error = %v", err)
	}

	if resource.Host != "example.com" || resource.Path != "/greeting" {
		t.Errorf("got (%q, %q), want (example.com, /greeting)", resource.Host, resource.Path)
	}
	if got, _ := resource.Headers.Get(cache.PseudoStatus); got != "200" {
		t.Errorf(":status = %q, want 200", got)
	}
	if got, _ := resource.Headers.Get("content-type"); got != "text/plain" {
		t.Errorf("content-type = %q, want text/plain", got)
	}
	if string(resource.Body) != "hello" {
		t.Errorf("body = %q, want hello", resource.Body)
	}
	// The override header keeps the exact lookup key.
	if _, found := resource.Headers.Get(cache.OriginalURLHeader); found {
		t.Error("x-original-url should be consumed by the loader")
	}
}

func TestSaveRoundTripWithQuery(t *testing.T) {
	dir := t.TempDir()
	rec := New(dir)

	req, resp := fixtureExchange(t, "http://example.com/search?q=go")
	if err := rec.Save(req, resp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	resource, err := cache.ReadResource(dir, filepath.Join(dir, "example.com", "search"))
	if err != nil {
		t.Fatalf("ReadResource() error = %v", err)
	}
	// X-Original-Url preserves the query string in the lookup key.
	if resource.Path != "/search?q=go" {
		t.Errorf("Path = %q, want /search?q=go", resource.Path)
	}
}
