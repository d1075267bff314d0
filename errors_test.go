package filehttp

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{Parsef("Message is empty."), 400},
		{Formatf("Content-Length is not an integer."), 400},
		{MissingHeader("Content-Type"), 404},
		{&UnsupportedEncodingError{Coding: "gzip"}, 400},
		{&StorageError{Op: "read", Path: "/a.txt", NotFound: true, Err: fs.ErrNotExist}, 404},
		{&StorageError{Op: "write", Path: "/a.txt", Err: fs.ErrPermission}, 500},
		{fmt.Errorf("wrapped: %w", &StorageError{Op: "read", Path: "/a.txt"}), 500},
	}
	for _, tt := range tests {
		if code := StatusCode(tt.err); code != tt.code {
			t.Fatalf("%v: status %d, want %d", tt.err, code, tt.code)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	if msg := MissingHeader("Content-Length").Error(); msg != "Headers don't include Content-Length." {
		t.Fatalf("message is %s", msg)
	}
	if msg := (&StorageError{Op: "write", Path: "/x.png"}).Error(); msg != "Couldn't create /x.png" {
		t.Fatalf("message is %s", msg)
	}
	err := &ConnectionError{Addr: "localhost:80", Err: fs.ErrClosed}
	if !errors.Is(err, fs.ErrClosed) {
		t.Fatalf("%v does not unwrap", err)
	}
}
