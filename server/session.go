package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	filehttp "github.com/always-cache/filehttp"
	"github.com/always-cache/filehttp/pkg/message"
	"github.com/always-cache/filehttp/pkg/wire"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	lingerTimeout = 500 * time.Millisecond
	lingerBytes   = 256 << 10
)

// session serves the requests of one accepted connection.
// Requests are read one after another; their responses go through the
// ordering queue to a single writer, so concurrently handled requests are
// still answered in the order they arrived.
type session struct {
	id       string
	server   *Server
	conn     net.Conn
	br       *bufio.Reader
	queue    *orderingQueue
	handlers sync.WaitGroup
	seq      int64
	// set when the session ends on an error the peer may still be sending into
	linger bool
	log    zerolog.Logger
}

func newSession(s *Server, conn net.Conn) *session {
	id := uuid.NewString()
	return &session{
		id:     id,
		server: s,
		conn:   conn,
		br:     bufio.NewReader(conn),
		queue:  newOrderingQueue(),
		log: s.log.With().
			Str("session", id).
			Str("remote", conn.RemoteAddr().String()).
			Logger(),
	}
}

func (s *session) serve() {
	defer s.conn.Close()
	done := make(chan struct{})
	go s.writeLoop(done)
	defer func() {
		s.handlers.Wait()
		s.queue.close()
		<-done
		if s.linger {
			s.lingerClose()
		}
	}()

	s.log.Debug().Msg("Session started")
	for s.serveRequest() {
	}
	s.log.Debug().Msg("Session ended")
}

// serveRequest reads and dispatches one request.
// It reports whether the session should go on reading.
func (s *session) serveRequest() bool {
	lines, err := s.readHeaderBlock()
	if err != nil {
		var netErr net.Error
		var formatErr *filehttp.FormatError
		switch {
		case err == io.EOF:
			s.log.Trace().Msg("Connection closed by peer")
		case errors.As(err, &netErr) && netErr.Timeout():
			s.log.Debug().Msg("Idle timeout")
		case errors.As(err, &formatErr):
			s.log.Debug().Err(err).Msg("Request head too long")
			s.queue.push(s.nextSeq(), errorResponse(message.HTTP11, false, err))
			s.linger = true
		default:
			s.log.Debug().Err(err).Msg("Could not read request")
		}
		return false
	}

	req, err := wire.ParseRequest(lines)
	if err != nil {
		s.log.Debug().Err(err).Str("line", lines[0]).Msg("Malformed request")
		// a body we cannot frame would be read as the next request
		if wire.MayCarryBody(lines[1:]) {
			s.queue.push(s.nextSeq(), errorResponse(message.HTTP11, false, err))
			s.linger = true
			return false
		}
		s.queue.push(s.nextSeq(), errorResponse(message.HTTP11, true, err))
		return true
	}
	log := s.log.With().
		Str("verb", string(req.Verb)).
		Str("path", req.Path).
		Logger()
	log.Trace().Msgf("Request: %s", req)

	if !req.Version.Supported() {
		log.Debug().Str("version", req.Version.String()).Msg("Unsupported version, dropping connection")
		return false
	}

	seq := s.nextSeq()
	persist, err := message.Persistence(req.Version, req.Header)
	if err != nil {
		log.Debug().Err(err).Msg("Bad Connection header")
		s.queue.push(seq, errorResponse(req.Version, false, err))
		return false
	}

	if expectsContinue(req) {
		s.queue.pushInterim(seq, continueResponse())
	}
	if req.Body, err = s.readBody(req.Header); err != nil {
		log.Debug().Err(err).Msg("Could not frame request body")
		s.queue.push(seq, errorResponse(req.Version, false, err))
		s.linger = true
		return false
	}

	switch req.Verb {
	case message.GET:
		if persist {
			s.handlers.Add(1)
			go func() {
				defer s.handlers.Done()
				s.queue.push(seq, s.server.handleGet(req, persist))
			}()
		} else {
			s.queue.push(seq, s.server.handleGet(req, persist))
		}
	case message.POST:
		s.queue.push(seq, s.server.handlePost(req, persist))
	}
	return persist
}

func (s *session) nextSeq() int64 {
	seq := s.seq
	s.seq++
	return seq
}

// readHeaderBlock reads the next request head. The idle timeout is
// recomputed before every line from the current connection count.
// Empty lines ahead of the request line are skipped.
func (s *session) readHeaderBlock() ([]string, error) {
	var lines []string
	for {
		timeout := s.server.heuristic.Timeout(s.server.active.Load())
		if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
		line, err := wire.ReadLine(s.br, s.server.limits.Line())
		if err != nil {
			if err == io.EOF && len(lines) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if line == "" {
			if len(lines) == 0 {
				continue
			}
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// readBody reads the request body without looking at its Content-Type,
// so a request that is rejected later still leaves the stream in sync.
func (s *session) readBody(h message.Header) ([]byte, error) {
	deadline := time.Now().Add(s.server.heuristic.MaxTimeout)
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	return wire.ReadBodyFramed(s.br, h, s.server.limits)
}

// lingerClose half-closes the connection and discards what the peer still
// sends for a moment, so the error response is not lost to a reset.
func (s *session) lingerClose() {
	if tcp, ok := s.conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(s.conn, lingerBytes))
}

// writeLoop owns the output side of the connection. After a failed write
// the remaining responses are drained and dropped.
func (s *session) writeLoop(done chan<- struct{}) {
	defer close(done)
	failed := false
	for {
		res, ok := s.queue.pop()
		if !ok {
			return
		}
		if failed {
			continue
		}
		if err := wire.WriteResponse(s.conn, res); err != nil {
			s.log.Debug().Err(err).Msg("Could not write response")
			failed = true
			continue
		}
		s.log.Debug().Int("status", res.StatusCode).Msg("Response sent")
	}
}

func expectsContinue(req *message.Request) bool {
	v, ok := req.Header.Get("expect")
	return ok && req.Version == message.HTTP11 && strings.EqualFold(strings.TrimSpace(v), "100-continue")
}
