package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseResource(t *testing.T) {
	data := []byte("HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"hello")

	resource, err := ParseResource("example.com/greeting", data)
	if err != nil {
		t.Fatalf("ParseResource() error = %v", err)
	}

	if resource.Host != "example.com" {
		t.Errorf("Host = %q, want example.com", resource.Host)
	}
	if resource.Path != "/greeting" {
		t.Errorf("Path = %q, want /greeting", resource.Path)
	}
	if got, _ := resource.Headers.Get(PseudoStatus); got != "200" {
		t.Errorf(":status = %q, want 200", got)
	}
	if got, _ := resource.Headers.Get("content-type"); got != "text/plain" {
		t.Errorf("content-type = %q, want text/plain", got)
	}
	if string(resource.Body) != "hello" {
		t.Errorf("Body = %q, want hello", resource.Body)
	}
}

func TestParseResourceLFOnly(t *testing.T) {
	data := []byte("HTTP/1.1 204 No Content\nX-Token: abc\n\n")

	resource, err := ParseResource("example.com/empty", data)
	if err != nil {
		t.Fatalf("ParseResource() error = %v", err)
	}
	if got, _ := resource.Headers.Get(PseudoStatus); got != "204" {
		t.Errorf(":status = %q, want 204", got)
	}
	if got, _ := resource.Headers.Get("x-token"); got != "abc" {
		t.Errorf("x-token = %q, want abc", got)
	}
	if len(resource.Body) != 0 {
		t.Errorf("Body = %q, want empty", resource.Body)
	}
}

func TestParseResourceBodyVerbatim(t *testing.T) {
	// Blank lines and binary-ish bytes after the separator belong to
	// the body untouched.
	body := "line one\n\nline two\x00after zero"
	data := []byte("HTTP/1.1 200 OK\r\n\r\n" + body)

	resource, err := ParseResource("example.com/raw", data)
	if err != nil {
		t.Fatalf("ParseResource() error = %v", err)
	}
	if string(resource.Body) != body {
		t.Errorf("Body = %q, want %q", resource.Body, body)
	}
}

func TestParseResourceOriginalURLOverride(t *testing.T) {
	data := []byte("HTTP/1.1 200 OK\r\n" +
		"X-Original-Url: http://example.com/\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<html></html>")

	resource, err := ParseResource("example.com/index.html", data)
	if err != nil {
		t.Fatalf("ParseResource() error = %v", err)
	}

	if resource.Host != "example.com" || resource.Path != "/" {
		t.Errorf("override gave (%q, %q), want (example.com, /)", resource.Host, resource.Path)
	}
	if _, found := resource.Headers.Get(OriginalURLHeader); found {
		t.Error("x-original-url should be removed from stored headers")
	}
}

func TestParseResourcePushURLs(t *testing.T) {
	data := []byte("HTTP/1.1 200 OK\r\n" +
		"X-Push-Url: https://example.com/style.css\r\n" +
		"X-Push-Url: http://example.com/app.js\r\n" +
		"\r\n" +
		"body")

	resource, err := ParseResource("example.com/index.html", data)
	if err != nil {
		t.Fatalf("ParseResource() error = %v", err)
	}

	want := []string{"example.com/style.css", "example.com/app.js"}
	if !reflect.DeepEqual(resource.PushURLs, want) {
		t.Errorf("PushURLs = %v, want %v", resource.PushURLs, want)
	}
	if _, found := resource.Headers.Get(PushURLHeader); found {
		t.Error("x-push-url should be removed from stored headers")
	}
}

func TestParseResourceDuplicateAndFoldedHeaders(t *testing.T) {
	data := []byte("HTTP/1.1 200 OK\r\n" +
		"Set-Cookie: a=1\r\n" +
		"Set-Cookie: b=2\r\n" +
		"X-Folded: first\r\n" +
		" continued\r\n" +
		"\r\n")

	resource, err := ParseResource("example.com/cookies", data)
	if err != nil {
		t.Fatalf("ParseResource() error = %v", err)
	}

	cookies := resource.Headers.Values("set-cookie")
	if !reflect.DeepEqual(cookies, []string{"a=1", "b=2"}) {
		t.Errorf("set-cookie = %v, want both occurrences in order", cookies)
	}
	if got, _ := resource.Headers.Get("x-folded"); got != "first continued" {
		t.Errorf("x-folded = %q, want folded value", got)
	}
}

func TestParseResourceMissingStatusLine(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty file", data: ""},
		{name: "header first", data: "Content-Type: text/plain\r\n\r\nbody"},
		{name: "garbage status code", data: "HTTP/1.1 abc OK\r\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseResource("example.com/bad", []byte(tt.data)); err == nil {
				t.Error("ParseResource() should fail without a status line")
			}
		})
	}
}

func TestParseResourceHostOnlyBase(t *testing.T) {
	resource, err := ParseResource("example.com", []byte("HTTP/1.1 200 OK\r\n\r\n"))
	if err != nil {
		t.Fatalf("ParseResource() error = %v", err)
	}
	if resource.Host != "example.com" || resource.Path != "/" {
		t.Errorf("got (%q, %q), want (example.com, /)", resource.Host, resource.Path)
	}
}

func TestRemoveScheme(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/a", "example.com/a"},
		{"http://example.com/a", "example.com/a"},
		{"example.com/a", "example.com/a"},
	}
	for _, tt := range tests {
		if got := RemoveScheme(tt.url); got != tt.want {
			t.Errorf("RemoveScheme(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestReadResource(t *testing.T) {
	cacheDir := t.TempDir()
	dir := filepath.Join(cacheDir, "example.com", "assets")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	file := filepath.Join(dir, "logo.png")
	if err := os.WriteFile(file, []byte("HTTP/1.1 200 OK\r\n\r\npng-bytes"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	resource, err := ReadResource(cacheDir, file)
	if err != nil {
		t.Fatalf("ReadResource() error = %v", err)
	}
	if resource.Host != "example.com" || resource.Path != "/assets/logo.png" {
		t.Errorf("got (%q, %q), want (example.com, /assets/logo.png)", resource.Host, resource.Path)
	}
	if string(resource.Body) != "png-bytes" {
		t.Errorf("Body = %q, want png-bytes", resource.Body)
	}
}

func TestReadResourceMissingFile(t *testing.T) {
	if _, err := ReadResource(t.TempDir(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("ReadResource() should fail for a missing file")
	}
}
