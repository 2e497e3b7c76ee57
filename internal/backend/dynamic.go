package backend

import (
	"strconv"
	"strings"

	"github.com/aixkai/naiveproxy/internal/cache"
)

// NumericPath reports whether path, ignoring the leading slash, is
// purely numeric, and returns its value.
func NumericPath(path string) (int, bool) {
	digits := strings.TrimPrefix(path, "/")
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// GenerateBody returns n bytes of deterministic filler, so repeated
// requests for the same path compare byte-identical.
func GenerateBody(n int) []byte {
	body := make([]byte, n)
	for i := range body {
		body[i] = byte('a' + i%26)
	}
	return body
}

// GeneratedResponse wraps GenerateBody in a 200 response.
func GeneratedResponse(n int) *cache.Response {
	return cache.SimpleResponse(200, GenerateBody(n))
}
