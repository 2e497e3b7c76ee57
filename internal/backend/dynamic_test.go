package backend

import (
	"bytes"
	"testing"
)

func TestNumericPath(t *testing.T) {
	tests := []struct {
		path   string
		want   int
		wantOK bool
	}{
		{path: "/1024", want: 1024, wantOK: true},
		{path: "1024", want: 1024, wantOK: true},
		{path: "/0", want: 0, wantOK: true},
		{path: "/", wantOK: false},
		{path: "", wantOK: false},
		{path: "/12a4", wantOK: false},
		{path: "/index.html", wantOK: false},
		{path: "/-5", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := NumericPath(tt.path)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NumericPath(%q) = (%d, %v), want (%d, %v)", tt.path, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGenerateBody(t *testing.T) {
	body := GenerateBody(1024)
	if len(body) != 1024 {
		t.Fatalf("len = %d, want 1024", len(body))
	}
	if !bytes.Equal(body, GenerateBody(1024)) {
		t.Error("GenerateBody is not deterministic")
	}
	if body[0] != 'a' || body[25] != 'z' || body[26] != 'a' {
		t.Errorf("unexpected pattern start: %q", body[:30])
	}
}

func TestGeneratedResponse(t *testing.T) {
	resp := GeneratedResponse(16)
	code, _ := resp.StatusCode()
	if code != 200 {
		t.Errorf("status = %d, want 200", code)
	}
	if got, _ := resp.Headers.Get("content-length"); got != "16" {
		t.Errorf("content-length = %q, want 16", got)
	}
	if len(resp.Body) != 16 {
		t.Errorf("body length = %d, want 16", len(resp.Body))
	}
}
