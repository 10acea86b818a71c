// Package headerutil implements the case-insensitive, order-preserving,
// duplicate-retaining header multi-map wisp uses for request and response
// headers, plus typed views (content-length, content-type, cookies).
package headerutil

import (
	"fmt"
	"strconv"
	"strings"
)

type entry struct {
	name  string // as first seen
	value string
}

// Headers is a case-insensitive, ordered, duplicate-preserving multi-map.
type Headers struct {
	entries []entry
}

// New builds an empty Headers.
func New() *Headers { return &Headers{} }

// Add appends a value for name, preserving any existing values.
func (h *Headers) Add(name, value string) {
	h.entries = append(h.entries, entry{name: name, value: value})
}

// Set replaces all existing values for name with a single value.
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes every value for name.
func (h *Headers) Del(name string) {
	out := h.entries[:0]
	for _, e := range h.entries {
		if !strings.EqualFold(e.name, name) {
			out = append(out, e)
		}
	}
	h.entries = out
}

// Get returns the first value for name, case-insensitively.
func (h *Headers) Get(name string) (string, bool) {
	for _, e := range h.entries {
		if strings.EqualFold(e.name, name) {
			return e.value, true
		}
	}
	return "", false
}

// Values returns every value for name, in insertion order.
func (h *Headers) Values(name string) []string {
	var out []string
	for _, e := range h.entries {
		if strings.EqualFold(e.name, name) {
			out = append(out, e.value)
		}
	}
	return out
}

// Has reports whether name has at least one value.
func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Each calls fn for every (name, value) pair in insertion order.
func (h *Headers) Each(fn func(name, value string)) {
	for _, e := range h.entries {
		fn(e.name, e.value)
	}
}

// Len returns the number of header lines (not the number of distinct names).
func (h *Headers) Len() int { return len(h.entries) }

// ContentLength returns the parsed Content-Length, or (0, false) if absent.
// Duplicate Content-Length headers with distinct values are a parse error
// the caller should have already rejected.
func (h *Headers) ContentLength() (int64, bool) {
	v, ok := h.Get("Content-Length")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ContentType holds a parsed media type plus its parameters (e.g. charset).
type ContentType struct {
	MediaType  string
	Parameters map[string]string
}

// Charset returns the charset parameter, defaulting to utf-8.
func (c ContentType) Charset() string {
	if cs, ok := c.Parameters["charset"]; ok && cs != "" {
		return cs
	}
	return "utf-8"
}

// ContentType parses the Content-Type header into media type + parameters.
func (h *Headers) ContentType() (ContentType, bool) {
	v, ok := h.Get("Content-Type")
	if !ok {
		return ContentType{}, false
	}
	parts := strings.Split(v, ";")
	ct := ContentType{MediaType: strings.TrimSpace(parts[0]), Parameters: map[string]string{}}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		key, value, found := strings.Cut(p, "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"`)
		ct.Parameters[strings.ToLower(strings.TrimSpace(key))] = value
	}
	return ct, true
}

// ValidateValue rejects control bytes (below 0x20, except HT) and DEL in a
// header value; SP and bytes from 0x80 up are accepted.
func ValidateValue(value string) error {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '\t' {
			continue
		}
		if c < 0x20 || c == 0x7f {
			return fmt.Errorf("headerutil: control character in header value at byte %d", i)
		}
	}
	return nil
}

// ValidateName rejects control characters and delimiters in a header name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("headerutil: empty header name")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c == 0x7f || strings.ContainsRune(":()<>@,;\\\"/[]?={}", rune(c)) {
			return fmt.Errorf("headerutil: invalid character in header name %q", name)
		}
	}
	return nil
}
