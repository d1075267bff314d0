package message

import (
	"path"
	"sort"
	"strings"
)

const (
	TypePlainText   = "text/plain"
	TypeHTML        = "text/html"
	TypePNG         = "image/png"
	TypeOctetStream = "application/octet-stream"
)

var typeExtension = map[string]string{
	TypePNG:       "png",
	TypeHTML:      "html",
	TypePlainText: "txt",
}

var extensionType = func() map[string]string {
	m := make(map[string]string, len(typeExtension))
	for t, ext := range typeExtension {
		m[ext] = t
	}
	return m
}()

// Extension returns the file extension registered for a content type.
func Extension(contentType string) (string, bool) {
	ext, ok := typeExtension[contentType]
	return ext, ok
}

// TypeOf returns the content type registered for a file extension
// (without the dot).
func TypeOf(ext string) (string, bool) {
	t, ok := extensionType[strings.ToLower(ext)]
	return t, ok
}

// AcceptedTypes lists the registered content types, sorted.
func AcceptedTypes() []string {
	types := make([]string, 0, len(typeExtension))
	for t := range typeExtension {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ContentTypeFor picks the Content-Type to serve a file with.
// Names without an extension are plain text, unknown extensions are binary.
func ContentTypeFor(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return TypePlainText
	}
	if t, ok := TypeOf(ext); ok {
		return t
	}
	return TypeOctetStream
}
