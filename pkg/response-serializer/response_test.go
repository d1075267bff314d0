package serializer

import (
	"bufio"
	"strings"
	"testing"
	"time"

	"github.com/always-cache/filehttp/pkg/message"
	"github.com/always-cache/filehttp/pkg/wire"
)

func TestChunkedResponseIsStoredByLength(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nContent-Type: text/plain\r\n\r\n" +
		"7\r\nMozilla\r\n9\r\nDeveloper\r\n7\r\nNetwork\r\n0\r\n\r\n"
	res, err := wire.ReadResponse(bufio.NewReader(strings.NewReader(raw)), wire.Limits{})
	if err != nil {
		t.Fatalf("Error: %v", err)
	}

	bts := StoredResponseToBytes(StoredResponse{Response: res, StoredAt: time.Now()})
	if strings.Contains(string(bts), "Transfer-Encoding") {
		t.Fatalf("Transfer-Encoding stored: %s", bts)
	}
	if !strings.Contains(string(bts), "Content-Length: 23\r\n") {
		t.Fatalf("Content-Length missing: %s", bts)
	}
	// the original is left intact
	if _, ok := res.Header.Get("transfer-encoding"); !ok {
		t.Fatalf("Original response was modified")
	}

	stored, err := BytesToStoredResponse(bts)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if body := string(stored.Response.Body); body != "MozillaDeveloperNetwork" {
		t.Fatalf("Body: %s", body)
	}
}

func TestStoredResponseSerialization(t *testing.T) {
	res := message.NewResponse(message.HTTP11).
		WithStatus(200).
		WithHeader("Server", "FileServer/0.0.1").
		WithBody(message.TypeHTML, []byte("<p>hi</p>")).
		Build()
	storedAt := time.Now()

	stored, err := BytesToStoredResponse(StoredResponseToBytes(StoredResponse{
		Response: res,
		StoredAt: storedAt,
	}))
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if stored.StoredAt.Unix() != storedAt.Unix() {
		t.Fatalf("StoredAt: %v != %v", stored.StoredAt, storedAt)
	}
	if stored.Response.Header.Has(storedAtHeaderName) {
		t.Fatalf("Stamp header not removed")
	}
	if stored.Response.StatusCode != 200 || string(stored.Response.Body) != "<p>hi</p>" {
		t.Fatalf("Response: %s", stored.Response)
	}
	if v, _ := stored.Response.Header.Get("server"); v != "FileServer/0.0.1" {
		t.Fatalf("Server header: %s", v)
	}
}

func TestBodyWithoutTypeGetsOctetStream(t *testing.T) {
	res := &message.Response{
		Version:       message.HTTP10,
		StatusCode:    200,
		StatusMessage: "OK",
		Header:        message.Header{},
		Body:          []byte{0x89, 0x50},
	}
	stored, err := BytesToStoredResponse(StoredResponseToBytes(StoredResponse{Response: res}))
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if ct, _ := stored.Response.Header.Get("content-type"); ct != message.TypeOctetStream {
		t.Fatalf("Content-Type: %s", ct)
	}
}
