package message

import (
	"sort"
	"strings"

	filehttp "github.com/always-cache/filehttp"
)

// Header maps lowercase header names to their single value.
type Header map[string]string

// Get returns the value for name, matched case-insensitively.
func (h Header) Get(name string) (string, bool) {
	v, ok := h[strings.ToLower(name)]
	return v, ok
}

// Has checks if the header is present.
func (h Header) Has(name string) bool {
	_, ok := h[strings.ToLower(name)]
	return ok
}

// Set stores value under name, replacing any previous value.
func (h Header) Set(name, value string) {
	h[strings.ToLower(name)] = value
}

// Del removes name.
func (h Header) Del(name string) {
	delete(h, strings.ToLower(name))
}

// Add stores a header read off the wire.
// Unlike Set it is strict: repeating a name or giving a blank value fails.
func (h Header) Add(name, value string) error {
	key := strings.ToLower(name)
	if _, ok := h[key]; ok {
		return filehttp.Parsef("Message contains duplicate header %s.", key)
	}
	if strings.TrimSpace(value) == "" {
		return filehttp.Parsef("Value is empty for %s", key)
	}
	h[key] = value
	return nil
}

// Names returns the header names in sorted order.
func (h Header) Names() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy of h.
func (h Header) Clone() Header {
	c := make(Header, len(h))
	for k, v := range h {
		c[k] = v
	}
	return c
}

// CanonicalName capitalizes each dash-separated word of name,
// e.g. content-type becomes Content-Type.
func CanonicalName(name string) string {
	b := []byte(strings.ToLower(name))
	upper := true
	for i, c := range b {
		if upper && c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
		upper = c == '-'
	}
	return string(b)
}
