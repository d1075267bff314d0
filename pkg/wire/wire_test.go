package wire

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	filehttp "github.com/always-cache/filehttp"
	"github.com/always-cache/filehttp/pkg/message"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadLine(t *testing.T) {
	br := reader("first\r\nsecond\n\r\nlast")

	for _, want := range []string{"first", "second", "", "last"} {
		line, err := ReadLine(br, 64)
		require.NoError(t, err)
		require.Equal(t, want, line)
	}
	_, err := ReadLine(br, 64)
	require.Equal(t, io.EOF, err)
}

func TestReadHeaderBlock(t *testing.T) {
	br := reader("GET /a.txt HTTP/1.1\r\nHost: x\r\n\r\nrest")
	lines, err := ReadHeaderBlock(br, Limits{})
	require.NoError(t, err)
	require.Equal(t, []string{"GET /a.txt HTTP/1.1", "Host: x"}, lines)

	_, err = ReadHeaderBlock(reader(""), Limits{})
	require.Equal(t, io.EOF, err)

	_, err = ReadHeaderBlock(reader("GET / HTTP/1.1\r\nHost: x\r\n"), Limits{})
	require.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]string{
		"GET /dir/some%20file.txt HTTP/1.1",
		"User-Agent: Wget/1.19.4 (linux-gnu)",
		"Accept: */*",
		"Host: localhost:8000",
		"Connection: Keep-Alive",
		"",
		"ignored: after blank line",
	})
	require.NoError(t, err)
	require.Equal(t, message.GET, req.Verb)
	require.Equal(t, "/dir/some%20file.txt", req.Path)
	require.Equal(t, message.HTTP11, req.Version)
	require.Equal(t, message.Header{
		"user-agent": "Wget/1.19.4 (linux-gnu)",
		"accept":     "*/*",
		"host":       "localhost:8000",
		"connection": "Keep-Alive",
	}, req.Header)
	require.True(t, req.Persists())
}

func TestParseWithoutHeaders(t *testing.T) {
	m, err := Parse([]string{"GET / HTTP/1.1"})
	require.NoError(t, err)
	require.Empty(t, m.Headers())

	m, err = Parse([]string{"HTTP/1.0 404 Not Found", "Content-Length: 0"})
	require.NoError(t, err)
	res, ok := m.(*message.Response)
	require.True(t, ok)
	require.Equal(t, 404, res.StatusCode)
	require.Equal(t, "Not Found", res.StatusMessage)
	require.False(t, res.Persists())
}

func TestParseErrors(t *testing.T) {
	tests := map[string][]string{
		"empty":                 {},
		"unknown verb":          {"PUT /x HTTP/1.1"},
		"path without slash":    {"GET x HTTP/1.1"},
		"bad version":           {"GET / HTTP/one"},
		"bad status line":       {"HTTP/1.1 OK"},
		"header without colon":  {"GET / HTTP/1.1", "Host localhost"},
		"header with bad token": {"GET / HTTP/1.1", "Bad( : v"},
		"empty value":           {"GET / HTTP/1.1", "Accept: "},
		"blank value":           {"HTTP/1.1 200 OK", "Server:    "},
	}
	for name, lines := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(lines)
			var parseErr *filehttp.ParseError
			require.True(t, errors.As(err, &parseErr), "got %v", err)
		})
	}
}

func TestDuplicateHeaderRejectedAnywhere(t *testing.T) {
	headers := []string{"User-Agent: Wget", "Accept: */*", "Host: x", "Connection: close"}
	for i := range headers {
		for _, dup := range []string{strings.ToLower(headers[i]), strings.ToUpper(headers[i][:1]) + headers[i][1:]} {
			lines := append([]string{"GET / HTTP/1.1"}, headers...)
			// insert the duplicate at every position after the original
			for pos := i + 2; pos <= len(lines); pos++ {
				withDup := append(append(append([]string{}, lines[:pos]...), dup), lines[pos:]...)
				_, err := ParseRequest(withDup)
				var parseErr *filehttp.ParseError
				require.True(t, errors.As(err, &parseErr), "lines %q", withDup)
			}
		}
	}
}

func TestSerializeIsByteExact(t *testing.T) {
	res := message.NewResponse(message.HTTP11).
		WithStatus(200).
		WithHeader("server", "FileServer/0.0.1").
		WithBody(message.TypePlainText, []byte("hello")).
		Build()
	require.Equal(t,
		"HTTP/1.1 200 OK\r\nContent-Length: 5\r\nContent-Type: text/plain\r\nServer: FileServer/0.0.1\r\n\r\nhello",
		string(Serialize(res)))

	req := message.NewRequest(message.GET, message.HTTP10).To("/a.txt").WithHeader("Host", "localhost").Build()
	require.Equal(t, "GET /a.txt HTTP/1.0\r\nHost: localhost\r\n\r\n", string(Serialize(req)))
}

func TestRoundTrip(t *testing.T) {
	reqs := []*message.Request{
		message.NewRequest(message.GET, message.HTTP11).To("/index.html").
			WithHeader("Host", "127.0.0.1").
			WithHeader("Accept", "image/png,text/html,text/plain").
			WithHeader("Accept-Language", "en-us").
			Build(),
		message.NewRequest(message.POST, message.HTTP10).To("/up/load.txt").
			WithHeader("Connection", "keep-alive").
			WithBody(message.TypePlainText, []byte("some text\r\nwith lines")).
			Build(),
	}
	for _, req := range reqs {
		got, err := ReadRequest(bufio.NewReader(strings.NewReader(string(Serialize(req)))), Limits{})
		require.NoError(t, err)
		require.Equal(t, req.Verb, got.Verb)
		require.Equal(t, req.Path, got.Path)
		require.Equal(t, req.Version, got.Version)
		require.Equal(t, req.Header, got.Header)
		require.Equal(t, req.Body, got.Body)
	}

	res := message.NewResponse(message.HTTP11).WithStatus(404).
		WithHeader("Server", "FileServer/0.0.1").
		WithBody(message.TypePlainText, []byte("/x.txt doesn't exist")).
		Build()
	got, err := ReadResponse(bufio.NewReader(strings.NewReader(string(Serialize(res)))), Limits{})
	require.NoError(t, err)
	require.Equal(t, res, got)
}

func TestReadResponseChunked(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nContent-Type: text/plain\r\n\r\n" +
		"7\r\nMozilla\r\n9\r\nDeveloper\r\n7\r\nNetwork\r\n0\r\n\r\n"
	res, err := ReadResponse(reader(raw), Limits{})
	require.NoError(t, err)
	require.Equal(t, "MozillaDeveloperNetwork", string(res.Body))
}

func TestReadBodyFraming(t *testing.T) {
	_, err := ReadResponse(reader("HTTP/1.1 200 OK\r\nTransfer-Encoding: gzip, chunked\r\n\r\n"), Limits{})
	var unsupported *filehttp.UnsupportedEncodingError
	require.True(t, errors.As(err, &unsupported))

	_, err = ReadResponse(reader("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nbody"), Limits{})
	var formatErr *filehttp.FormatError
	require.True(t, errors.As(err, &formatErr))
	require.True(t, formatErr.Missing)

	_, err = ReadRequest(reader("POST /a.txt HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc"), Limits{})
	require.True(t, errors.As(err, &formatErr), "Content-Type is required with a body")

	_, err = ReadRequest(reader("POST /a.txt HTTP/1.1\r\nContent-Length: three\r\nContent-Type: text/plain\r\n\r\nabc"), Limits{})
	require.True(t, errors.As(err, &formatErr))
	require.False(t, formatErr.Missing)

	interim, err := ReadResponse(reader("HTTP/1.1 100 Continue\r\n\r\n"), Limits{})
	require.NoError(t, err)
	require.Equal(t, 100, interim.StatusCode)
	require.Nil(t, interim.Body)
}

func TestReadLineLimit(t *testing.T) {
	line, err := ReadLine(reader("12345678\r\n"), 8)
	require.NoError(t, err)
	require.Equal(t, "12345678", line)

	_, err = ReadLine(reader(strings.Repeat("a", 20)+"\r\n"), 8)
	var formatErr *filehttp.FormatError
	require.True(t, errors.As(err, &formatErr), "got %v", err)

	_, err = ReadHeaderBlock(reader("GET / HTTP/1.1\r\nX-Long: "+strings.Repeat("v", 100)+"\r\n\r\n"), Limits{MaxLine: 32})
	require.True(t, errors.As(err, &formatErr), "got %v", err)
}

func TestBodyLimits(t *testing.T) {
	limits := Limits{MaxBody: 4}
	var formatErr *filehttp.FormatError

	_, err := ReadRequest(reader("POST /a.txt HTTP/1.1\r\nContent-Type: text/plain\r\n"+
		"Content-Length: 9223372036854775807\r\n\r\n"), limits)
	require.True(t, errors.As(err, &formatErr), "got %v", err)
	require.False(t, formatErr.Missing)

	_, err = ReadRequest(reader("POST /a.txt HTTP/1.1\r\nContent-Type: text/plain\r\n"+
		"Transfer-Encoding: chunked\r\n\r\n7fffffffffffffff\r\n"), limits)
	require.True(t, errors.As(err, &formatErr), "got %v", err)

	req, err := ReadRequest(reader("POST /a.txt HTTP/1.1\r\nContent-Type: text/plain\r\n"+
		"Content-Length: 4\r\n\r\nabcd"), limits)
	require.NoError(t, err)
	require.Equal(t, "abcd", string(req.Body))

	_, err = ReadResponse(reader("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 10\r\n\r\nabc"), Limits{})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadBodyFramedIgnoresContentType(t *testing.T) {
	br := reader("abcGET")
	body, err := ReadBodyFramed(br, message.Header{"content-length": "3"}, Limits{})
	require.NoError(t, err)
	require.Equal(t, "abc", string(body))
	rest, err := io.ReadAll(br)
	require.NoError(t, err)
	require.Equal(t, "GET", string(rest))

	_, err = ReadBodyFramed(reader(""), message.Header{"transfer-encoding": "gzip"}, Limits{})
	var unsupported *filehttp.UnsupportedEncodingError
	require.True(t, errors.As(err, &unsupported))
}

func TestMayCarryBody(t *testing.T) {
	require.True(t, MayCarryBody([]string{"Content-Type: a", "content-type: b", "Content-Length: 4"}))
	require.True(t, MayCarryBody([]string{" Transfer-Encoding : chunked"}))
	require.False(t, MayCarryBody([]string{"Accept: x", "accept: y", "Host localhost"}))
	require.False(t, MayCarryBody(nil))
}
