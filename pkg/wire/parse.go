// Package wire converts between raw HTTP/1.x text and message values.
package wire

import (
	"regexp"
	"strconv"
	"strings"

	filehttp "github.com/always-cache/filehttp"
	"github.com/always-cache/filehttp/pkg/message"
)

var (
	requestLinePattern = regexp.MustCompile(`^(GET|POST)\s(/.*) HTTP/(\d+)\.(\d+)$`)
	statusLinePattern  = regexp.MustCompile(`^HTTP/(\d+)\.(\d+) (\d{3})(?: (.*))?$`)
	headerPattern      = regexp.MustCompile("^([A-Za-z0-9!#$%&'*+.^_`|~-]+):[ \t]*(.*)$")
)

// Parse parses a header block into a request or a response,
// depending on its start line.
func Parse(lines []string) (message.Message, error) {
	if len(lines) > 0 && strings.HasPrefix(lines[0], "HTTP/") {
		return ParseResponse(lines)
	}
	return ParseRequest(lines)
}

// ParseRequest parses a request line followed by header lines.
// Lines after the first empty line are ignored.
func ParseRequest(lines []string) (*message.Request, error) {
	if len(lines) == 0 {
		return nil, filehttp.Parsef("Message is empty.")
	}
	m := requestLinePattern.FindStringSubmatch(lines[0])
	if m == nil {
		return nil, filehttp.Parsef("First line didn't match the anticipated format.")
	}
	version, err := parseVersion(m[3], m[4])
	if err != nil {
		return nil, err
	}
	header, err := parseHeaders(lines[1:])
	if err != nil {
		return nil, err
	}
	return &message.Request{
		Verb:    message.Verb(m[1]),
		Path:    m[2],
		Version: version,
		Header:  header,
	}, nil
}

// ParseResponse parses a status line followed by header lines.
func ParseResponse(lines []string) (*message.Response, error) {
	if len(lines) == 0 {
		return nil, filehttp.Parsef("Message is empty.")
	}
	m := statusLinePattern.FindStringSubmatch(lines[0])
	if m == nil {
		return nil, filehttp.Parsef("First line didn't match the anticipated format.")
	}
	version, err := parseVersion(m[1], m[2])
	if err != nil {
		return nil, err
	}
	code, _ := strconv.Atoi(m[3])
	header, err := parseHeaders(lines[1:])
	if err != nil {
		return nil, err
	}
	return &message.Response{
		Version:       version,
		StatusCode:    code,
		StatusMessage: m[4],
		Header:        header,
	}, nil
}

func parseVersion(major, minor string) (message.Version, error) {
	maj, err := strconv.Atoi(major)
	if err != nil {
		return message.Version{}, filehttp.Parsef("Malformed version %s.%s", major, minor)
	}
	min, err := strconv.Atoi(minor)
	if err != nil {
		return message.Version{}, filehttp.Parsef("Malformed version %s.%s", major, minor)
	}
	return message.Version{Major: maj, Minor: min}, nil
}

func parseHeaders(lines []string) (message.Header, error) {
	header := message.Header{}
	for _, line := range lines {
		if line == "" {
			break
		}
		m := headerPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, filehttp.Parsef("Couldn't parse header line: %s", line)
		}
		if err := header.Add(m[1], strings.TrimRight(m[2], " \t")); err != nil {
			return nil, err
		}
	}
	return header, nil
}
