package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Reserved snapshot headers. OriginalURLHeader overrides the host and
// path derived from the file location; PushURLHeader declares one push
// association per occurrence.
const (
	OriginalURLHeader = "x-original-url"
	PushURLHeader     = "x-push-url"
)

// Resource is one snapshot file parsed into a cacheable response plus
// the metadata needed to register it in a Store.
type Resource struct {
	Host    string
	Path    string
	Headers Header
	Body    []byte
	// PushURLs are scheme-stripped "host/path" references to resources
	// that should be loaded alongside this one.
	PushURLs []string
}

// Key returns the store key this resource registers under.
func (r *Resource) Key() string {
	return storeKey(r.Host, r.Path)
}

// Response converts the parsed resource into a cache entry.
func (r *Resource) Response() *Response {
	return NewResponse(r.Headers, r.Body)
}

// ReadResource reads and parses the snapshot file at filePath. Host and
// path default to the file's location relative to cacheDir: the first
// path segment is the host, the rest is the path.
func ReadResource(cacheDir, filePath string) (*Resource, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading resource file: %w", err)
	}
	base, err := filepath.Rel(cacheDir, filePath)
	if err != nil {
		return nil, fmt.Errorf("resolving resource path: %w", err)
	}
	return ParseResource(filepath.ToSlash(base), data)
}

// ParseResource parses a captured HTTP response blob: a status line,
// header lines, a blank line, then the raw body. base is the file path
// relative to the cache root, as "host/path/to/file".
func ParseResource(base string, data []byte) (*Resource, error) {
	head, body := splitHeadBody(data)

	lines := strings.Split(string(head), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	statusCode, err := parseStatusLine(lines[0])
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", base, err)
	}

	var headers Header
	headers.Add(PseudoStatus, strconv.Itoa(statusCode))
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		// Folded continuation lines extend the previous value.
		if line[0] == ' ' || line[0] == '\t' {
			if len(headers) > 0 {
				headers[len(headers)-1].Value += " " + strings.TrimSpace(line)
			}
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			logrus.Debugf("Skipping malformed header line in %s: %q", base, line)
			continue
		}
		headers.Add(strings.ToLower(name), strings.TrimSpace(value))
	}

	resource := &Resource{
		Headers: headers,
		Body:    body,
	}
	resource.Host, resource.Path = hostPathFromBase(base)

	if original, ok := headers.Get(OriginalURLHeader); ok {
		resource.Host, resource.Path = splitHostPath(RemoveScheme(original))
		resource.Headers.Del(OriginalURLHeader)
	}
	for _, u := range headers.Values(PushURLHeader) {
		resource.PushURLs = append(resource.PushURLs, RemoveScheme(u))
	}
	resource.Headers.Del(PushURLHeader)

	return resource, nil
}

// RemoveScheme strips an http:// or https:// prefix from a URL so the
// remainder can be used as a store key.
func RemoveScheme(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	return url
}

// splitHeadBody cuts the blob at the first blank line. Everything after
// the separator is the body, verbatim, zero bytes included.
func splitHeadBody(data []byte) (head, body []byte) {
	crlf := bytes.Index(data, []byte("\r\n\r\n"))
	lf := bytes.Index(data, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return data[:crlf], data[crlf+4:]
	case lf >= 0:
		return data[:lf], data[lf+2:]
	default:
		return data, nil
	}
}

func parseStatusLine(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0, fmt.Errorf("missing status line, got %q", line)
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("invalid status code in %q", line)
	}
	return code, nil
}

func hostPathFromBase(base string) (host, path string) {
	host, rest, ok := strings.Cut(base, "/")
	if !ok {
		return host, "/"
	}
	return host, "/" + rest
}

func splitHostPath(hostPath string) (host, path string) {
	slash := strings.Index(hostPath, "/")
	if slash < 0 {
		return hostPath, "/"
	}
	return hostPath[:slash], hostPath[slash:]
}
