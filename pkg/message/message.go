// Package message holds the request and response value types shared by the
// server and the client, together with their persistence rules.
package message

import (
	"fmt"
	"strconv"
	"strings"

	filehttp "github.com/always-cache/filehttp"
)

// Version is an HTTP protocol version.
type Version struct {
	Major int
	Minor int
}

var (
	HTTP10 = Version{1, 0}
	HTTP11 = Version{1, 1}
)

func (v Version) String() string {
	return fmt.Sprintf("HTTP/%d.%d", v.Major, v.Minor)
}

// Supported reports whether v is HTTP/1.0 or HTTP/1.1.
func (v Version) Supported() bool {
	return v.Major == 1 && v.Minor <= 1
}

// persistsByDefault is the connection default without a Connection header.
func (v Version) persistsByDefault() bool {
	return (v.Major == 1 && v.Minor == 1) || v.Major > 1
}

// Verb is a request method. Only GET and POST are understood.
type Verb string

const (
	GET  Verb = "GET"
	POST Verb = "POST"
)

// Message is implemented by *Request and *Response.
type Message interface {
	ProtocolVersion() Version
	Headers() Header
	Persists() bool
}

// Persistence decides whether a connection stays open after a message with
// the given version and headers. A Connection value other than keep-alive or
// close is a format error.
func Persistence(v Version, h Header) (bool, error) {
	option, ok := h.Get("connection")
	if !ok {
		return v.persistsByDefault(), nil
	}
	switch strings.ToLower(strings.TrimSpace(option)) {
	case "keep-alive":
		return true, nil
	case "close":
		return false, nil
	default:
		return v.persistsByDefault(), filehttp.Formatf("Header connection can either be keep-alive or close.")
	}
}

func persists(v Version, h Header) bool {
	p, err := Persistence(v, h)
	return p && err == nil
}

// ContentLength returns the parsed Content-Length header.
// ok is false when the header is absent.
func ContentLength(h Header) (n int, ok bool, err error) {
	v, ok := h.Get("content-length")
	if !ok {
		return 0, false, nil
	}
	n, err = strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, true, filehttp.Formatf("Content-Length is not an integer.")
	}
	return n, true, nil
}

// BodyConsumer receives a fully read response body.
type BodyConsumer func(body []byte) error

// Request is an HTTP request. Build one with NewRequest or get one from the
// wire codec; it is not modified afterwards.
type Request struct {
	Verb    Verb
	Path    string
	Version Version
	Header  Header
	Body    []byte

	consumers []BodyConsumer
}

func (r *Request) ProtocolVersion() Version { return r.Version }
func (r *Request) Headers() Header          { return r.Header }

// Persists reports whether the sender wants the connection kept open.
func (r *Request) Persists() bool {
	return persists(r.Version, r.Header)
}

// Consume passes a received response body to the body consumers in order.
func (r *Request) Consume(body []byte) error {
	for _, c := range r.consumers {
		if err := c(body); err != nil {
			return err
		}
	}
	return nil
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s %s %v", r.Verb, r.Path, r.Version, r.Header)
}

// Response is an HTTP response.
type Response struct {
	Version       Version
	StatusCode    int
	StatusMessage string
	Header        Header
	Body          []byte
}

func (r *Response) ProtocolVersion() Version { return r.Version }
func (r *Response) Headers() Header          { return r.Header }

// Persists reports whether the server keeps the connection open.
func (r *Response) Persists() bool {
	return persists(r.Version, r.Header)
}

func (r *Response) String() string {
	return fmt.Sprintf("%s %d %s %v", r.Version, r.StatusCode, r.StatusMessage, r.Header)
}

// StatusText returns the reason phrase for the status codes this package
// produces, or the empty string.
func StatusText(code int) string {
	switch code {
	case 100:
		return "Continue"
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	default:
		return ""
	}
}
