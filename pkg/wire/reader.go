package wire

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	filehttp "github.com/always-cache/filehttp"
	"github.com/always-cache/filehttp/pkg/message"
	transfer "github.com/always-cache/filehttp/pkg/transfer-encoding"
)

// ReadLine reads one line terminated by "\n" or "\r\n" and returns it without
// the terminator. io.EOF is returned only when the stream ended before any
// byte was read; a line cut short by end of stream is returned as is.
// A line longer than maxLine fails with a *FormatError.
func ReadLine(br *bufio.Reader, maxLine int) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				break
			}
			return "", err
		}
		if b == '\n' {
			break
		}
		// one byte of slack for the CR
		if sb.Len() > maxLine {
			return "", filehttp.Formatf("Line exceeds %d bytes.", maxLine)
		}
		sb.WriteByte(b)
	}
	return strings.TrimSuffix(sb.String(), "\r"), nil
}

// ReadHeaderBlock reads the start line and header lines up to the blank
// separator, which is consumed but not returned.
func ReadHeaderBlock(br *bufio.Reader, limits Limits) ([]string, error) {
	var lines []string
	for {
		line, err := ReadLine(br, limits.Line())
		if err != nil {
			if err == io.EOF && len(lines) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if line == "" {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// ReadBodyFramed reads the body that follows a header block, framed either
// by Transfer-Encoding or by Content-Length. A message with neither has no
// body. The headers describing the content are not looked at.
func ReadBodyFramed(br *bufio.Reader, h message.Header, limits Limits) ([]byte, error) {
	if te, ok := h.Get("transfer-encoding"); ok {
		enc := transfer.Select(te)
		switch enc.Coding {
		case transfer.Chunked:
			return transfer.DecodeChunked(br, limits.Body(), limits.Line())
		case transfer.Unsupported:
			return nil, enc.Err()
		}
	}
	n, ok, err := message.ContentLength(h)
	if err != nil || !ok || n == 0 {
		return nil, err
	}
	if int64(n) > limits.Body() {
		return nil, filehttp.Formatf("Content-Length %d exceeds %d bytes.", n, limits.Body())
	}
	var body bytes.Buffer
	if _, err := io.CopyN(&body, br, int64(n)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return body.Bytes(), nil
}

// ReadBody is ReadBodyFramed for messages that must label their content:
// a body without Content-Type fails with a missing-header *FormatError.
func ReadBody(br *bufio.Reader, h message.Header, limits Limits) ([]byte, error) {
	body, err := ReadBodyFramed(br, h, limits)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 && !h.Has("content-type") {
		return nil, filehttp.MissingHeader("Content-Type")
	}
	return body, nil
}

// MayCarryBody reports whether raw header lines name a framing header.
// It is used on header blocks that failed to parse, to tell whether unread
// body bytes could follow them.
func MayCarryBody(lines []string) bool {
	for _, line := range lines {
		name, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "content-length", "transfer-encoding":
			return true
		}
	}
	return false
}

// ReadRequest reads and parses a complete request including its body.
func ReadRequest(br *bufio.Reader, limits Limits) (*message.Request, error) {
	lines, err := ReadHeaderBlock(br, limits)
	if err != nil {
		return nil, err
	}
	req, err := ParseRequest(lines)
	if err != nil {
		return nil, err
	}
	if req.Body, err = ReadBody(br, req.Header, limits); err != nil {
		return nil, err
	}
	return req, nil
}

// ReadResponse reads and parses a complete response including its body.
func ReadResponse(br *bufio.Reader, limits Limits) (*message.Response, error) {
	lines, err := ReadHeaderBlock(br, limits)
	if err != nil {
		return nil, err
	}
	res, err := ParseResponse(lines)
	if err != nil {
		return nil, err
	}
	switch {
	case res.StatusCode >= 100 && res.StatusCode < 200, res.StatusCode == 204, res.StatusCode == 304:
		return res, nil
	case !res.Header.Has("transfer-encoding") && !res.Header.Has("content-length"):
		// no read-until-close framing
		return nil, filehttp.MissingHeader("Content-Length")
	}
	if res.Body, err = ReadBody(br, res.Header, limits); err != nil {
		return nil, err
	}
	return res, nil
}
