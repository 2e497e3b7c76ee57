package cache

import (
	"sync"
	"time"
)

// Store is an in-memory response cache keyed by (host, path). It is
// safe for concurrent use: one RWMutex covers the whole store,
// including the default response and the dynamic-generation toggle.
// Entries live for the lifetime of the store; there is no eviction.
//
// Responses are cloned on the way in and on the way out, so callers on
// different goroutines never share a mutable entry.
type Store struct {
	mu              sync.RWMutex
	responses       map[string]*Response
	defaultResponse *Response
	generateDynamic bool
}

func NewStore() *Store {
	return &Store{
		responses: make(map[string]*Response),
	}
}

// Keys are exact string concatenations of host and path. No
// normalization of case, trailing slashes or percent-encoding is done;
// distinct spellings are distinct entries.
func storeKey(host, path string) string {
	return host + path
}

// Put inserts or overwrites the entry at (host, path).
func (s *Store) Put(host, path string, resp *Response) {
	clone := resp.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[storeKey(host, path)] = clone
}

// Get returns a copy of the entry at (host, path), or false if absent.
func (s *Store) Get(host, path string) (*Response, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp, ok := s.responses[storeKey(host, path)]
	if !ok {
		return nil, false
	}
	return resp.Clone(), true
}

// SetDelay assigns a simulated delay to an existing entry. It returns
// false, and creates nothing, when no entry exists at (host, path).
func (s *Store) SetDelay(host, path string, delay time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.responses[storeKey(host, path)]
	if !ok {
		return false
	}
	resp.Delay = delay
	return true
}

// SetDefault installs the response served on cache misses.
func (s *Store) SetDefault(resp *Response) {
	clone := resp.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultResponse = clone
}

// Default returns a copy of the cache-miss response, or false if none
// was configured.
func (s *Store) Default() (*Response, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.defaultResponse == nil {
		return nil, false
	}
	return s.defaultResponse.Clone(), true
}

// EnableDynamicGeneration turns on dynamically generated responses for
// numeric request paths. There is no way back.
func (s *Store) EnableDynamicGeneration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generateDynamic = true
}

func (s *Store) DynamicGenerationEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generateDynamic
}

// Len returns the number of cached entries, not counting the default
// response.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.responses)
}

// Keys calls the given callback for each key while holding the read
// lock. The callback must not call back into the store.
func (s *Store) Keys(cb func(string)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key := range s.responses {
		cb(key)
	}
}
