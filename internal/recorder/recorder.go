// Capture proxy producing snapshot files for the cache backend
package recorder

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/elazarl/goproxy"
	"github.com/sirupsen/logrus"
)

// Recorder is a forward proxy that writes every response it relays into
// the snapshot format the cache loader consumes: status line, headers,
// blank line, raw body, laid out as host/path under the capture
// directory. An X-Original-Url header preserves the exact request URL
// so lookup keys survive the round trip.
type Recorder struct {
	proxy *goproxy.ProxyHttpServer
	dir   string
}

// New creates a recorder capturing into dir
func New(dir string) *Recorder {
	rec := &Recorder{
		proxy: goproxy.NewProxyHttpServer(),
		dir:   dir,
	}
	rec.proxy.OnResponse().DoFunc(func(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
		if resp == nil {
			return resp
		}
		if err := rec.Save(ctx.Req, resp); err != nil {
			logrus.Errorf("Failed to record %s: %v", ctx.Req.URL, err)
		}
		return resp
	})
	return rec
}

// Handler returns the proxy handler, for mounting in an HTTP server
func (rec *Recorder) Handler() http.Handler {
	return rec.proxy
}

// Save writes one request/response pair as a snapshot file. The
// response body is read and restored so the proxy can still relay it.
func (rec *Recorder) Save(req *http.Request, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if cerr := resp.Body.Close(); cerr != nil {
		return fmt.Errorf("closing response body: %w", cerr)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	snapshot := formatSnapshot(req, resp, body)
	path := rec.snapshotPath(req)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	if err := os.WriteFile(path, snapshot, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	logrus.Debugf("Recorded %s to %s", req.URL, path)
	return nil
}

func formatSnapshot(req *http.Request, resp *http.Response, body []byte) []byte {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "%s %s\r\n", resp.Proto, resp.Status)
	for name, values := range resp.Header {
		for _, value := range values {
			fmt.Fprintf(buf, "%s: %s\r\n", name, value)
		}
	}
	fmt.Fprintf(buf, "X-Original-Url: %s://%s%s\r\n",
		urlScheme(req), req.URL.Host, req.URL.RequestURI())
	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes()
}

// snapshotPath maps a request to dir/host/path, with index.html filling
// in for directory-shaped paths.
func (rec *Recorder) snapshotPath(req *http.Request) string {
	host := strings.TrimSuffix(strings.TrimSuffix(req.URL.Host, ":80"), ":443")
	path := req.URL.Path
	if path == "" || strings.HasSuffix(path, "/") {
		path += "index.html"
	}
	return filepath.Join(rec.dir, host, filepath.FromSlash(strings.TrimPrefix(path, "/")))
}

func urlScheme(req *http.Request) string {
	if req.URL.Scheme != "" {
		return req.URL.Scheme
	}
	if req.TLS != nil {
		return "https"
	}
	return "http"
}
