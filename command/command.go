// Package command turns a commands file into client jobs.
//
// Each line names one request:
//
//	GET /index.html localhost 8080
//	POST /notes.txt example.com:80
//
// The port defaults to Loader.DefaultPort. Blank lines and lines starting
// with # are ignored; malformed lines are reported and skipped.
package command

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/always-cache/filehttp/client"
	"github.com/always-cache/filehttp/pkg/message"
	"github.com/always-cache/filehttp/storage"
)

const userAgent = "Mozilla/4.0"

var linePattern = regexp.MustCompile(`^(GET|POST)\s+(\S+)\s+([A-Za-z0-9](?:[A-Za-z0-9.\-]*[A-Za-z0-9])?)(?::(\d+)|\s+(\d+))?\s*$`)

// LineError describes a skipped line.
type LineError struct {
	Line   int
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("Line %d (%s): %s", e.Line, e.Text, e.Reason)
}

type Loader struct {
	// Where GET responses are written and POST bodies are read from.
	Content storage.Store
	// Port used when a line does not name one.
	DefaultPort int
}

// Load parses every line of r. It returns the jobs in file order and the
// lines that were skipped. The error is only set when r cannot be read.
func (l Loader) Load(r io.Reader) ([]client.Job, []*LineError, error) {
	var (
		jobs    []client.Job
		skipped []*LineError
	)
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		job, reason := l.parseLine(text)
		if reason != "" {
			skipped = append(skipped, &LineError{Line: n, Text: text, Reason: reason})
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, skipped, scanner.Err()
}

func (l Loader) parseLine(text string) (client.Job, string) {
	m := linePattern.FindStringSubmatch(text)
	if m == nil {
		return client.Job{}, "Invalid format."
	}
	verb := message.Verb(m[1])
	name := m[2]
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	host := strings.ToLower(m[3])
	port := l.DefaultPort
	if p := m[4] + m[5]; p != "" {
		var err error
		if port, err = strconv.Atoi(p); err != nil || port < 1 || port > 65535 {
			return client.Job{}, fmt.Sprintf("Port %s is out of range.", p)
		}
	}

	ext := strings.TrimPrefix(path.Ext(name), ".")
	contentType, known := message.TypeOf(ext)
	switch {
	case ext != "" && !known:
		return client.Job{}, fmt.Sprintf("Extension(%s) is not supported. Acceptable extensions: %s.",
			ext, strings.Join(message.AcceptedTypes(), ","))
	case ext == "" && verb == message.POST:
		return client.Job{}, fmt.Sprintf("Extension missing from file (%s).", name)
	}

	req := message.NewRequest(verb, message.HTTP11).
		To(name).
		WithHeader("Host", host).
		WithHeader("Accept", strings.Join(message.AcceptedTypes(), ",")).
		WithHeader("Accept-Language", "en-us").
		WithHeader("User-Agent", userAgent)

	if verb == message.GET {
		req.WithBodyConsumer(func(body []byte) error {
			return l.Content.Write(name, body)
		})
	} else {
		body, err := l.Content.Read(name)
		if err != nil {
			return client.Job{}, fmt.Sprintf("File (%s) does not exist.", name)
		}
		req.WithBody(contentType, body)
	}
	return client.Job{Request: req.Build(), Host: host, Port: port}, ""
}
