// Handles cached HTTP responses and their in-memory store
package cache

import (
	"strconv"
	"strings"
)

// Pseudo-header names used to carry request and response metadata,
// HTTP/2 style.
const (
	PseudoStatus    = ":status"
	PseudoMethod    = ":method"
	PseudoPath      = ":path"
	PseudoScheme    = ":scheme"
	PseudoAuthority = ":authority"
)

// Field is a single header name/value pair.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered, possibly multi-valued header mapping. Unlike
// http.Header it preserves insertion order, which decides the order
// fields are written out when a cached response is replayed.
type Header []Field

// Add appends a field, keeping any existing fields with the same name.
func (h *Header) Add(name, value string) {
	*h = append(*h, Field{Name: name, Value: value})
}

// Set replaces every field with the given name by a single field,
// appending it if the name was not present.
func (h *Header) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Get returns the first value for the given name. Name matching is
// case-insensitive.
func (h Header) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns all values for the given name, in insertion order.
func (h Header) Values(name string) []string {
	var values []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

// Del removes every field with the given name.
func (h *Header) Del(name string) {
	fields := (*h)[:0]
	for _, f := range *h {
		if !strings.EqualFold(f.Name, name) {
			fields = append(fields, f)
		}
	}
	*h = fields
}

// Clone returns an independent copy of the header.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	clone := make(Header, len(h))
	copy(clone, h)
	return clone
}

// Status parses the :status pseudo-header as an integer status code.
func (h Header) Status() (int, bool) {
	value, ok := h.Get(PseudoStatus)
	if !ok {
		return 0, false
	}
	code, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return code, true
}
