// HTTP front end for the cache backend
package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/aixkai/naiveproxy/internal/backend"
	"github.com/aixkai/naiveproxy/internal/cache"
)

// Server adapts the cache backend to net/http: it translates incoming
// requests into pseudo-header blocks, runs them through FetchResponse,
// and replays the outcome onto the ResponseWriter.
type Server struct {
	backend *backend.Backend
}

// New creates a new server around an initialized backend
func New(b *backend.Backend) *Server {
	return &Server{backend: b}
}

// Handler returns the http.Handler serving cached responses
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleRequest)
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	handler := newStreamHandler()
	err = s.backend.FetchResponse(requestHeaders(r), body, handler)
	switch {
	case errors.Is(err, backend.ErrNotInitialized):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case errors.Is(err, backend.ErrNoResponse):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	select {
	case outcome := <-handler.done:
		s.writeOutcome(w, r, outcome)
	case <-r.Context().Done():
		// Client went away; make sure a delayed delivery cannot fire
		// into a dead stream.
		s.backend.CloseStream(handler)
	}
}

func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, outcome streamOutcome) {
	switch outcome.kind {
	case outcomeReset:
		logrus.Debugf("Aborting stream for %s %s", r.Method, r.URL.Path)
		panic(http.ErrAbortHandler)
	case outcomeStopSending:
		logrus.Debugf("Stopping send for %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	default:
		writeResponse(w, outcome.resp)
	}
}

func writeResponse(w http.ResponseWriter, resp *cache.Response) {
	for _, hints := range resp.EarlyHints {
		for _, f := range hints {
			if !isPseudo(f.Name) {
				w.Header().Add(f.Name, f.Value)
			}
		}
		w.WriteHeader(http.StatusEarlyHints)
	}

	for _, f := range resp.Headers {
		if !isPseudo(f.Name) {
			w.Header().Add(f.Name, f.Value)
		}
	}

	status := http.StatusOK
	if code, ok := resp.StatusCode(); ok {
		status = code
	}
	w.WriteHeader(status)

	if _, err := w.Write(resp.Body); err != nil {
		logrus.Errorf("Failed to write response body: %v", err)
		return
	}

	for _, f := range resp.Trailers {
		w.Header().Add(http.TrailerPrefix+f.Name, f.Value)
	}
}

// requestHeaders flattens the request into an ordered header block with
// :method, :scheme, :authority and :path pseudo-headers up front.
func requestHeaders(r *http.Request) cache.Header {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	var headers cache.Header
	headers.Add(cache.PseudoMethod, r.Method)
	headers.Add(cache.PseudoScheme, scheme)
	headers.Add(cache.PseudoAuthority, r.Host)
	headers.Add(cache.PseudoPath, r.URL.RequestURI())
	for name, values := range r.Header {
		for _, value := range values {
			headers.Add(strings.ToLower(name), value)
		}
	}
	return headers
}

func isPseudo(name string) bool {
	return strings.HasPrefix(name, ":")
}

type outcomeKind int

const (
	outcomeResponse outcomeKind = iota
	outcomeReset
	outcomeStopSending
)

type streamOutcome struct {
	kind outcomeKind
	resp *cache.Response
}

// streamHandler buffers the single backend outcome for the serving
// goroutine.
type streamHandler struct {
	done chan streamOutcome
}

func newStreamHandler() *streamHandler {
	return &streamHandler{done: make(chan streamOutcome, 1)}
}

func (h *streamHandler) OnResponse(resp *cache.Response) {
	h.done <- streamOutcome{kind: outcomeResponse, resp: resp}
}

func (h *streamHandler) OnResetStream() {
	h.done <- streamOutcome{kind: outcomeReset}
}

func (h *streamHandler) OnStopSending() {
	h.done <- streamOutcome{kind: outcomeStopSending}
}
