// Application-layer backend serving responses from an in-memory cache
package backend

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aixkai/naiveproxy/internal/cache"
)

var (
	// ErrNotInitialized is returned by FetchResponse before a
	// successful Initialize.
	ErrNotInitialized = errors.New("backend not initialized")
	// ErrNoResponse is returned on a cache miss when no default
	// response was configured.
	ErrNoResponse = errors.New("no response configured")
	// ErrAlreadyInitialized is returned when Initialize is called
	// again after a successful run.
	ErrAlreadyInitialized = errors.New("backend already initialized")
)

// RequestHandler receives exactly one outcome per fetched request: a
// full response, a reset instruction, a stop-sending instruction, or
// nothing at all for hung entries. The transport layer owns the handler
// and must call CloseStream when the stream ends.
type RequestHandler interface {
	OnResponse(resp *cache.Response)
	OnResetStream()
	OnStopSending()
}

// WebTransportSession is opaque to the backend; session mechanics
// belong to the transport layer.
type WebTransportSession interface{}

// WebTransportResponse is the accept/reject verdict for a WebTransport
// request.
type WebTransportResponse struct {
	Headers  cache.Header
	Accepted bool
}

// Backend is the cache-backed application layer the transport engine
// talks to. Test harnesses may keep adding and overriding responses
// while requests are being served on other goroutines.
type Backend struct {
	store *cache.Store

	mu                 sync.Mutex
	initialized        bool
	enableWebTransport bool
	cacheDir           string
	// pending tracks delayed deliveries so CloseStream can cancel them
	// before they reach the handler.
	pending map[RequestHandler]*time.Timer
}

func New() *Backend {
	return &Backend{
		store:   cache.NewStore(),
		pending: make(map[RequestHandler]*time.Timer),
	}
}

// Store exposes the underlying response store.
func (b *Backend) Store() *cache.Store {
	return b.store
}

// Initialize loads every snapshot file under cacheDir into the store,
// following push associations through an explicit worklist so cyclic
// push graphs cannot recurse forever. It fails if the directory cannot
// be walked, any file is malformed, or no entries were loaded. A second
// call after success is rejected.
func (b *Backend) Initialize(cacheDir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return ErrAlreadyInitialized
	}

	var queue []*cache.Resource
	byKey := make(map[string]*cache.Resource)
	err := filepath.WalkDir(cacheDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		resource, err := cache.ReadResource(cacheDir, path)
		if err != nil {
			return err
		}
		queue = append(queue, resource)
		byKey[resource.Key()] = resource
		return nil
	})
	if err != nil {
		return fmt.Errorf("initializing backend from %s: %w", cacheDir, err)
	}
	if len(queue) == 0 {
		return fmt.Errorf("no cacheable resources under %s", cacheDir)
	}

	loaded := make(map[string]bool)
	for len(queue) > 0 {
		resource := queue[0]
		queue = queue[1:]
		if loaded[resource.Key()] {
			continue
		}
		loaded[resource.Key()] = true
		b.store.Put(resource.Host, resource.Path, resource.Response())
		logrus.Debugf("Loaded response for %s%s", resource.Host, resource.Path)

		for _, u := range resource.PushURLs {
			target, ok := byKey[u]
			if !ok {
				logrus.Warnf("Push target %s of %s%s not found in cache directory",
					u, resource.Host, resource.Path)
				continue
			}
			if !loaded[target.Key()] {
				queue = append(queue, target)
			}
		}
	}

	b.cacheDir = cacheDir
	b.initialized = true
	logrus.Infof("Backend initialized with %d responses from %s", b.store.Len(), cacheDir)
	return nil
}

// IsInitialized reports whether Initialize has completed successfully.
func (b *Backend) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// AddResponse caches a response for (host, path), overwriting any
// previous entry.
func (b *Backend) AddResponse(host, path string, headers cache.Header, body []byte) {
	b.store.Put(host, path, cache.NewResponse(headers, body))
}

// AddResponseWithTrailers caches a response that carries trailers.
func (b *Backend) AddResponseWithTrailers(host, path string, headers cache.Header, body []byte, trailers cache.Header) {
	resp := cache.NewResponse(headers, body)
	resp.Trailers = trailers
	b.store.Put(host, path, resp)
}

// AddResponseWithEarlyHints caches a response preceded by interim 103
// header blocks.
func (b *Backend) AddResponseWithEarlyHints(host, path string, headers cache.Header, body []byte, hints []cache.Header) {
	resp := cache.NewResponse(headers, body)
	resp.EarlyHints = hints
	b.store.Put(host, path, resp)
}

// AddSimpleResponse caches a response whose headers contain only the
// status and content-length.
func (b *Backend) AddSimpleResponse(host, path string, statusCode int, body []byte) {
	b.store.Put(host, path, cache.SimpleResponse(statusCode, body))
}

// AddSpecialResponse makes requests for (host, path) trigger the given
// simulated behavior.
func (b *Backend) AddSpecialResponse(host, path string, behavior cache.Behavior) {
	resp := &cache.Response{Behavior: behavior}
	b.store.Put(host, path, resp)
}

// AddSpecialResponseWithBody is AddSpecialResponse with explicit
// headers and body, for behaviors that still send data.
func (b *Backend) AddSpecialResponseWithBody(host, path string, headers cache.Header, body []byte, behavior cache.Behavior) {
	resp := cache.NewResponse(headers, body)
	resp.Behavior = behavior
	b.store.Put(host, path, resp)
}

// SetResponseDelay assigns a simulated delay to an existing entry. It
// reports whether the entry was found.
func (b *Backend) SetResponseDelay(host, path string, delay time.Duration) bool {
	return b.store.SetDelay(host, path, delay)
}

// SetDefaultResponse installs the response served on cache misses.
func (b *Backend) SetDefaultResponse(resp *cache.Response) {
	b.store.SetDefault(resp)
}

// GenerateDynamicResponses makes requests whose path is purely numeric
// return that many generated bytes instead of consulting the cache.
// Once enabled it stays enabled.
func (b *Backend) GenerateDynamicResponses() {
	b.store.EnableDynamicGeneration()
}

// EnableWebTransport makes ProcessWebTransport accept sessions.
func (b *Backend) EnableWebTransport() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enableWebTransport = true
}

func (b *Backend) SupportsWebTransport() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enableWebTransport
}

// Keys returns the keys of all cached entries.
func (b *Backend) Keys() []string {
	keys := make([]string, 0, b.store.Len())
	b.store.Keys(func(key string) {
		keys = append(keys, key)
	})
	return keys
}

// FetchResponse resolves a response for the request described by its
// pseudo-headers and delivers exactly one outcome to handler. Delayed
// entries are delivered from a timer; the calling goroutine never
// sleeps. Hung entries deliver nothing.
func (b *Backend) FetchResponse(requestHeaders cache.Header, requestBody []byte, handler RequestHandler) error {
	if !b.IsInitialized() {
		return ErrNotInitialized
	}

	authority, _ := requestHeaders.Get(cache.PseudoAuthority)
	path, _ := requestHeaders.Get(cache.PseudoPath)

	resp, err := b.resolve(authority, path)
	if err != nil {
		return err
	}
	logrus.Debugf("Fetched response for %s%s: status=%v behavior=%s delay=%s",
		authority, path, statusOrZero(resp), resp.Behavior, resp.Delay)

	if resp.Delay <= 0 {
		b.deliver(resp, path, handler)
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.pending[handler]; ok {
		old.Stop()
	}
	b.pending[handler] = time.AfterFunc(resp.Delay, func() {
		b.mu.Lock()
		_, live := b.pending[handler]
		delete(b.pending, handler)
		b.mu.Unlock()
		if live {
			b.deliver(resp, path, handler)
		}
	})
	return nil
}

// CloseStream cancels any pending delayed delivery for handler. After
// it returns the handler will not be invoked again.
func (b *Backend) CloseStream(handler RequestHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if timer, ok := b.pending[handler]; ok {
		timer.Stop()
		delete(b.pending, handler)
	}
}

// ProcessWebTransport accepts every session with a 200 when
// WebTransport is enabled, and rejects with a 400 otherwise.
func (b *Backend) ProcessWebTransport(requestHeaders cache.Header, session WebTransportSession) WebTransportResponse {
	var headers cache.Header
	if !b.SupportsWebTransport() {
		headers.Add(cache.PseudoStatus, "400")
		return WebTransportResponse{Headers: headers}
	}
	headers.Add(cache.PseudoStatus, "200")
	return WebTransportResponse{Headers: headers, Accepted: true}
}

// resolve picks the entry for (host, path): dynamic generation first,
// then the store, then the default response.
func (b *Backend) resolve(host, path string) (*cache.Response, error) {
	if b.store.DynamicGenerationEnabled() {
		if n, ok := NumericPath(path); ok {
			return GeneratedResponse(n), nil
		}
	}
	if resp, ok := b.store.Get(host, path); ok {
		return resp, nil
	}
	if resp, ok := b.store.Default(); ok {
		return resp, nil
	}
	return nil, fmt.Errorf("%w for %s%s", ErrNoResponse, host, path)
}

func (b *Backend) deliver(resp *cache.Response, path string, handler RequestHandler) {
	switch resp.Behavior {
	case cache.BehaviorResetStream:
		handler.OnResetStream()
	case cache.BehaviorStopSending:
		handler.OnStopSending()
	case cache.BehaviorHang:
		// Deliberately no completion.
	case cache.BehaviorBackendError:
		handler.OnResponse(cache.SimpleResponse(500, nil))
	case cache.BehaviorGenerateBytes:
		n, ok := NumericPath(path)
		if !ok {
			logrus.Errorf("generate_bytes entry requested with non-numeric path %q", path)
			handler.OnResponse(cache.SimpleResponse(500, nil))
			return
		}
		handler.OnResponse(GeneratedResponse(n))
	default:
		handler.OnResponse(resp)
	}
}

func statusOrZero(resp *cache.Response) int {
	code, _ := resp.StatusCode()
	return code
}
