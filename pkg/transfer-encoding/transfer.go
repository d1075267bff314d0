// Package transfer decodes message bodies according to Transfer-Encoding.
// Only chunked is implemented; compression codings are rejected.
package transfer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	filehttp "github.com/always-cache/filehttp"
)

// Coding is the kind of transfer coding selected for a message.
type Coding int

const (
	Identity Coding = iota
	Chunked
	Unsupported
)

func (c Coding) String() string {
	switch c {
	case Identity:
		return "identity"
	case Chunked:
		return "chunked"
	default:
		return "unsupported"
	}
}

// Encoding is the transfer coding of one message.
// Name is only set for Unsupported.
type Encoding struct {
	Coding Coding
	Name   string
}

// Select picks the encoding for a Transfer-Encoding header value.
// An empty value means Identity.
func Select(value string) Encoding {
	enc := Encoding{Coding: Identity}
	for _, coding := range strings.Split(value, ",") {
		coding = strings.ToLower(strings.TrimSpace(coding))
		switch coding {
		case "", "identity":
		case "chunked":
			enc.Coding = Chunked
		default:
			// gzip, compress, deflate and anything unknown
			return Encoding{Coding: Unsupported, Name: coding}
		}
	}
	return enc
}

// Err returns an *UnsupportedEncodingError for Unsupported encodings.
func (e Encoding) Err() error {
	if e.Coding == Unsupported {
		return &filehttp.UnsupportedEncodingError{Coding: e.Name}
	}
	return nil
}

// DecodeChunked reads a chunked body from br and returns the payload.
// Trailer fields after the last chunk are read and discarded.
// A payload growing past maxBody or a line longer than maxLine fails with a
// *FormatError before the excess is read.
func DecodeChunked(br *bufio.Reader, maxBody int64, maxLine int) ([]byte, error) {
	var out bytes.Buffer
	for {
		size, err := readChunkSize(br, maxLine)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			if err := readTrailers(br, maxLine); err != nil {
				return nil, err
			}
			return out.Bytes(), nil
		}
		if size > maxBody-int64(out.Len()) {
			return nil, filehttp.Formatf("Chunked body exceeds %d bytes.", maxBody)
		}
		if _, err := io.CopyN(&out, br, size); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if err := expectCRLF(br); err != nil {
			return nil, err
		}
	}
}

func readChunkSize(br *bufio.Reader, maxLine int) (int64, error) {
	line, err := readLine(br, maxLine)
	if err != nil {
		return 0, err
	}
	// chunk extensions: "<hex>;<ext>"
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	n, err := strconv.ParseInt(line, 16, 64)
	if err != nil || n < 0 {
		return 0, filehttp.Formatf("Malformed chunk length %q.", line)
	}
	return n, nil
}

func expectCRLF(br *bufio.Reader) error {
	b1, err := br.ReadByte()
	if err != nil {
		return err
	}
	b2, err := br.ReadByte()
	if err != nil {
		return err
	}
	if b1 != '\r' || b2 != '\n' {
		return filehttp.Formatf("Malformed chunked encoding: expected CRLF after chunk, got %q", fmt.Sprintf("%c%c", b1, b2))
	}
	return nil
}

func readTrailers(br *bufio.Reader, maxLine int) error {
	for {
		line, err := readLine(br, maxLine)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
	}
}

func readLine(br *bufio.Reader, maxLine int) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if b == '\n' {
			break
		}
		// one byte of slack for the CR
		if sb.Len() > maxLine {
			return "", filehttp.Formatf("Chunk line exceeds %d bytes.", maxLine)
		}
		sb.WriteByte(b)
	}
	return strings.TrimSuffix(sb.String(), "\r"), nil
}
