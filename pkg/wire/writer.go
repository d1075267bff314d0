package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/always-cache/filehttp/pkg/message"
)

// Serialize returns the wire form of a request or response.
func Serialize(m message.Message) []byte {
	buf := &bytes.Buffer{}
	bw := bufio.NewWriter(buf)
	switch m := m.(type) {
	case *message.Request:
		_ = writeRequest(bw, m)
	case *message.Response:
		_ = writeResponse(bw, m)
	}
	_ = bw.Flush()
	return buf.Bytes()
}

// WriteRequest writes req to w and flushes it.
func WriteRequest(w io.Writer, req *message.Request) error {
	bw := bufio.NewWriter(w)
	if err := writeRequest(bw, req); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteResponse writes res to w and flushes it.
func WriteResponse(w io.Writer, res *message.Response) error {
	bw := bufio.NewWriter(w)
	if err := writeResponse(bw, res); err != nil {
		return err
	}
	return bw.Flush()
}

func writeRequest(bw *bufio.Writer, req *message.Request) error {
	if _, err := fmt.Fprintf(bw, "%s %s %s\r\n", req.Verb, req.Path, req.Version); err != nil {
		return err
	}
	return writeHeadersAndBody(bw, req.Header, req.Body)
}

func writeResponse(bw *bufio.Writer, res *message.Response) error {
	if _, err := fmt.Fprintf(bw, "%s %d %s\r\n", res.Version, res.StatusCode, res.StatusMessage); err != nil {
		return err
	}
	return writeHeadersAndBody(bw, res.Header, res.Body)
}

func writeHeadersAndBody(bw *bufio.Writer, h message.Header, body []byte) error {
	for _, name := range h.Names() {
		if _, err := fmt.Fprintf(bw, "%s: %s\r\n", message.CanonicalName(name), h[name]); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := bw.Write(body); err != nil {
			return err
		}
	}
	return nil
}
