package filehttp

import (
	"errors"
	"fmt"
)

// ParseError reports a malformed start line, header line, duplicate header
// or empty header value.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return e.Msg
}

// FormatError reports a message that parsed but cannot be processed:
// bad or missing Content-Length / Content-Type, a Connection value other
// than keep-alive or close, or an extension that does not match the type.
type FormatError struct {
	Msg string
	// Missing is set when a required header is absent.
	Missing bool
}

func (e *FormatError) Error() string {
	return e.Msg
}

// UnsupportedEncodingError is returned for transfer codings that are
// recognized but deliberately not implemented.
type UnsupportedEncodingError struct {
	Coding string
}

func (e *UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("Transfer-Encoding %q is not supported", e.Coding)
}

// StorageError wraps a failure of the backing store.
type StorageError struct {
	Op       string
	Path     string
	NotFound bool
	Err      error
}

func (e *StorageError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("%s doesn't exist", e.Path)
	}
	switch e.Op {
	case "write":
		return fmt.Sprintf("Couldn't create %s", e.Path)
	default:
		return fmt.Sprintf("Couldn't read %s", e.Path)
	}
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConnectionError is a refused, unreachable or broken socket.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Parsef returns a *ParseError with a formatted message.
func Parsef(format string, args ...interface{}) error {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}

// Formatf returns a *FormatError with a formatted message.
func Formatf(format string, args ...interface{}) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// MissingHeader returns the error for an absent required header.
func MissingHeader(name string) error {
	return &FormatError{Msg: fmt.Sprintf("Headers don't include %s.", name), Missing: true}
}

// StatusCode maps an error to the status code the server answers with.
func StatusCode(err error) int {
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		if storageErr.NotFound {
			return 404
		}
		return 500
	}
	var formatErr *FormatError
	if errors.As(err, &formatErr) && formatErr.Missing {
		return 404
	}
	return 400
}
