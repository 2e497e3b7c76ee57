package cache

import (
	"fmt"
	"strconv"
	"time"
)

// Behavior selects how a cached entry is delivered to the transport
// layer. Anything other than BehaviorNormal simulates a server-side
// failure mode instead of (or in addition to) sending the entry.
type Behavior int

const (
	// BehaviorNormal sends the entry as a regular response.
	BehaviorNormal Behavior = iota
	// BehaviorResetStream instructs the caller to abort the stream
	// abnormally instead of sending a response.
	BehaviorResetStream
	// BehaviorStopSending instructs the caller to signal it will not
	// send further data.
	BehaviorStopSending
	// BehaviorHang produces no response and no completion at all. The
	// caller must apply its own timeout.
	BehaviorHang
	// BehaviorGenerateBytes replaces the body with N generated bytes,
	// N being the numeric request path.
	BehaviorGenerateBytes
	// BehaviorBackendError responds with a synthesized 500.
	BehaviorBackendError
)

var behaviorNames = map[Behavior]string{
	BehaviorNormal:        "normal",
	BehaviorResetStream:   "reset_stream",
	BehaviorStopSending:   "stop_sending",
	BehaviorHang:          "hang",
	BehaviorGenerateBytes: "generate_bytes",
	BehaviorBackendError:  "backend_error",
}

func (b Behavior) String() string {
	if name, ok := behaviorNames[b]; ok {
		return name
	}
	return fmt.Sprintf("behavior(%d)", int(b))
}

// ParseBehavior converts a behavior name, as used in config files, back
// to a Behavior.
func ParseBehavior(name string) (Behavior, error) {
	for b, n := range behaviorNames {
		if n == name {
			return b, nil
		}
	}
	return BehaviorNormal, fmt.Errorf("unknown behavior %q", name)
}

// Response is one cached HTTP response. A Response is immutable once
// inserted into a Store, except for Delay which the Store mutates under
// its lock.
type Response struct {
	// Headers holds the final response headers, including :status.
	Headers Header
	Body    []byte
	// Trailers are sent after the body, if any.
	Trailers Header
	// EarlyHints are interim 103 header blocks sent before the final
	// headers.
	EarlyHints []Header
	Behavior   Behavior
	// Delay postpones delivery of the response. Zero means respond
	// immediately.
	Delay time.Duration
}

// NewResponse builds a regular response from headers and body.
func NewResponse(headers Header, body []byte) *Response {
	return &Response{Headers: headers, Body: body}
}

// SimpleResponse builds a response whose headers contain only :status
// and content-length.
func SimpleResponse(statusCode int, body []byte) *Response {
	var headers Header
	headers.Add(PseudoStatus, strconv.Itoa(statusCode))
	headers.Add("content-length", strconv.Itoa(len(body)))
	return &Response{Headers: headers, Body: body}
}

// Clone returns a copy safe to hand to another goroutine. Header slices
// are copied; the body bytes are shared since nothing mutates them.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	clone := &Response{
		Headers:  r.Headers.Clone(),
		Body:     r.Body,
		Trailers: r.Trailers.Clone(),
		Behavior: r.Behavior,
		Delay:    r.Delay,
	}
	if r.EarlyHints != nil {
		clone.EarlyHints = make([]Header, len(r.EarlyHints))
		for i, hints := range r.EarlyHints {
			clone.EarlyHints[i] = hints.Clone()
		}
	}
	return clone
}

// StatusCode returns the :status header as an integer.
func (r *Response) StatusCode() (int, bool) {
	return r.Headers.Status()
}
