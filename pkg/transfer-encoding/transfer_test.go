package transfer

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	filehttp "github.com/always-cache/filehttp"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestDecodeChunked(t *testing.T) {
	br := reader("7\r\nMozilla\r\n9\r\nDeveloper\r\n7\r\nNetwork\r\n0\r\n\r\n")
	body, err := DecodeChunked(br, 1<<20, 64)
	require.NoError(t, err)
	require.Len(t, body, 23)
	require.Equal(t, "MozillaDeveloperNetwork", string(body))

	// nothing after the terminating chunk is consumed
	_, err = br.ReadByte()
	require.Equal(t, io.EOF, err)
}

func TestDecodeChunkedLeavesNextMessage(t *testing.T) {
	br := reader("3;name=value\r\nhey\r\n2\r\n!!\r\n0\r\nExpires: never\r\n\r\nGET / HTTP/1.1\r\n")
	body, err := DecodeChunked(br, 1<<20, 64)
	require.NoError(t, err)
	require.Equal(t, "hey!!", string(body))

	rest, err := io.ReadAll(br)
	require.NoError(t, err)
	require.Equal(t, "GET / HTTP/1.1\r\n", string(rest))
}

func TestDecodeChunkedRejectsMalformedInput(t *testing.T) {
	var formatErr *filehttp.FormatError

	_, err := DecodeChunked(reader("zz\r\nabc\r\n0\r\n\r\n"), 1<<20, 64)
	require.True(t, errors.As(err, &formatErr), "malformed hex: %v", err)

	_, err = DecodeChunked(reader("\r\n"), 1<<20, 64)
	require.True(t, errors.As(err, &formatErr), "empty size line: %v", err)

	_, err = DecodeChunked(reader("3\r\nabcX\r\n0\r\n\r\n"), 1<<20, 64)
	require.True(t, errors.As(err, &formatErr), "missing CRLF after data: %v", err)

	_, err = DecodeChunked(reader("5\r\nab"), 1<<20, 64)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeChunkedLimits(t *testing.T) {
	var formatErr *filehttp.FormatError

	// a size near MaxInt64 is refused before anything is allocated
	_, err := DecodeChunked(reader("7fffffffffffffff\r\n"), 1<<20, 64)
	require.True(t, errors.As(err, &formatErr), "huge chunk: %v", err)

	// each chunk fits but the running total does not
	_, err = DecodeChunked(reader("4\r\nabcd\r\n4\r\nefgh\r\n0\r\n\r\n"), 6, 64)
	require.True(t, errors.As(err, &formatErr), "total over limit: %v", err)

	body, err := DecodeChunked(reader("3\r\nabc\r\n3\r\ndef\r\n0\r\n\r\n"), 6, 64)
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(body))

	_, err = DecodeChunked(reader(strings.Repeat("0", 100)+"1\r\na\r\n0\r\n\r\n"), 1<<20, 64)
	require.True(t, errors.As(err, &formatErr), "long size line: %v", err)

	_, err = DecodeChunked(reader("0\r\nX-Trailer: "+strings.Repeat("x", 100)+"\r\n\r\n"), 1<<20, 64)
	require.True(t, errors.As(err, &formatErr), "long trailer: %v", err)
}

func TestSelect(t *testing.T) {
	require.Equal(t, Encoding{Coding: Identity}, Select(""))
	require.Equal(t, Encoding{Coding: Chunked}, Select("chunked"))
	require.Equal(t, Encoding{Coding: Chunked}, Select(" Chunked "))
	require.Equal(t, Encoding{Coding: Unsupported, Name: "gzip"}, Select("gzip"))
	require.Equal(t, Encoding{Coding: Unsupported, Name: "deflate"}, Select("chunked, deflate"))
	require.Equal(t, Encoding{Coding: Unsupported, Name: "compress"}, Select("compress,chunked"))

	var unsupported *filehttp.UnsupportedEncodingError
	require.True(t, errors.As(Select("gzip, chunked").Err(), &unsupported))
	require.Equal(t, "gzip", unsupported.Coding)
	require.NoError(t, Select("chunked").Err())
}
