package message

import (
	"errors"
	"testing"

	filehttp "github.com/always-cache/filehttp"
	"github.com/stretchr/testify/require"
)

func TestPersistsDefaults(t *testing.T) {
	tests := []struct {
		name       string
		version    Version
		connection string
		want       bool
	}{
		{"1.1 without header", HTTP11, "", true},
		{"1.0 without header", HTTP10, "", false},
		{"1.0 keep-alive", HTTP10, "keep-alive", true},
		{"1.1 close", HTTP11, "close", false},
		{"1.1 mixed case close", HTTP11, "Close", false},
		{"1.0 mixed case keep-alive", HTTP10, "Keep-Alive", true},
		{"2.0 without header", Version{2, 0}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewRequest(GET, tt.version)
			if tt.connection != "" {
				b.WithHeader("Connection", tt.connection)
			}
			require.Equal(t, tt.want, b.Build().Persists())

			res := NewResponse(tt.version).WithStatus(200)
			if tt.connection != "" {
				res.WithHeader("Connection", tt.connection)
			}
			require.Equal(t, tt.want, res.Build().Persists())
		})
	}
}

func TestPersistenceRejectsUnknownConnectionValue(t *testing.T) {
	h := Header{"connection": "upgrade"}
	_, err := Persistence(HTTP11, h)
	var formatErr *filehttp.FormatError
	require.True(t, errors.As(err, &formatErr))

	req := &Request{Verb: GET, Path: "/", Version: HTTP11, Header: h}
	require.False(t, req.Persists())
}

func TestHeaderAddIsStrict(t *testing.T) {
	h := Header{}
	require.NoError(t, h.Add("Accept", "*/*"))

	var parseErr *filehttp.ParseError
	require.True(t, errors.As(h.Add("accept", "text/html"), &parseErr))
	require.True(t, errors.As(h.Add("User-Agent", "   "), &parseErr))
	require.True(t, errors.As(h.Add("Host", ""), &parseErr))

	v, ok := h.Get("ACCEPT")
	require.True(t, ok)
	require.Equal(t, "*/*", v)
}

func TestCanonicalName(t *testing.T) {
	require.Equal(t, "Content-Type", CanonicalName("content-type"))
	require.Equal(t, "Content-Length", CanonicalName("CONTENT-LENGTH"))
	require.Equal(t, "Server", CanonicalName("server"))
	require.Equal(t, "X-Request-Id", CanonicalName("x-request-id"))
}

func TestBuilderSetsFraming(t *testing.T) {
	res := NewResponse(HTTP11).WithStatus(404).WithBody(TypePlainText, []byte("nope")).Build()
	require.Equal(t, "Not Found", res.StatusMessage)
	require.Equal(t, Header{"content-type": "text/plain", "content-length": "4"}, res.Header)

	b := NewRequest(POST, HTTP11).To("/a.txt").WithBody(TypePlainText, []byte("hello"))
	first := b.Build()
	b.WithHeader("Host", "example.com")
	require.False(t, first.Header.Has("host"), "built request must not share headers with the builder")

	n, ok, err := ContentLength(first.Header)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, n)
}

func TestConsumersFireInOrder(t *testing.T) {
	var got []string
	req := NewRequest(GET, HTTP11).
		WithBodyConsumer(func(b []byte) error { got = append(got, "first:"+string(b)); return nil }).
		WithBodyConsumer(func(b []byte) error { got = append(got, "second:"+string(b)); return nil }).
		Build()
	require.NoError(t, req.Consume([]byte("x")))
	require.Equal(t, []string{"first:x", "second:x"}, got)
}

func TestContentTypeFor(t *testing.T) {
	require.Equal(t, TypePNG, ContentTypeFor("/img/logo.png"))
	require.Equal(t, TypeHTML, ContentTypeFor("index.html"))
	require.Equal(t, TypePlainText, ContentTypeFor("README"))
	require.Equal(t, TypeOctetStream, ContentTypeFor("archive.tar"))

	ext, ok := Extension(TypePlainText)
	require.True(t, ok)
	require.Equal(t, "txt", ext)
	require.Equal(t, []string{"image/png", "text/html", "text/plain"}, AcceptedTypes())
}
