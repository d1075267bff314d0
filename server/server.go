// Package server implements the file server: an accept loop handing each
// connection to a session that parses requests off the socket and answers
// them from a storage.Store.
package server

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/always-cache/filehttp/pkg/wire"
	"github.com/always-cache/filehttp/storage"
	"github.com/rs/zerolog"
)

var ErrServerClosed = errors.New("server closed")

const (
	DefaultThreshold  = 200
	DefaultMaxTimeout = 5 * time.Second
)

type Config struct {
	// Address to listen on, e.g. ":80".
	Addr string
	// Number of active connections at which the idle timeout reaches zero.
	// DefaultThreshold if not positive.
	Threshold int64
	// Idle timeout with no other active connections, also the time allowed
	// for reading a request body. DefaultMaxTimeout if not positive.
	MaxTimeout time.Duration
	// Bounds on request lines and bodies.
	Limits wire.Limits
	// Where files are served from and uploaded to.
	Store storage.Store
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

type Server struct {
	addr      string
	heuristic Heuristic
	limits    wire.Limits
	store     storage.Store
	log       zerolog.Logger

	active atomic.Int64
	served atomic.Int64

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
}

// Stats is a snapshot of the server's connection counters.
type Stats struct {
	Active      int64         `json:"active"`
	Served      int64         `json:"served"`
	IdleTimeout time.Duration `json:"idleTimeout"`
}

func New(config Config) *Server {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	logger = logger.With().
		Str("addr", config.Addr).
		Logger()

	heuristic := Heuristic{
		Threshold:  config.Threshold,
		MaxTimeout: config.MaxTimeout,
	}
	if heuristic.Threshold <= 0 {
		heuristic.Threshold = DefaultThreshold
	}
	if heuristic.MaxTimeout <= 0 {
		heuristic.MaxTimeout = DefaultMaxTimeout
	}

	return &Server{
		addr:      config.Addr,
		heuristic: heuristic,
		limits:    config.Limits,
		store:     config.Store,
		log:   logger,
		conns: make(map[net.Conn]struct{}),
	}
}

func (s *Server) ListenAndServe() error {
	addr := s.addr
	if addr == "" {
		addr = ":80"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on l until Close is called.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()
	defer l.Close()

	s.log.Info().Str("listen", l.Addr().String()).Msg("Serving files")
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.log.Warn().Err(err).Msg("Accept failed, retrying")
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return err
		}
		if !s.track(conn) {
			conn.Close()
			return ErrServerClosed
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	s.active.Add(1)
	s.served.Add(1)
	defer func() {
		s.untrack(conn)
		s.active.Add(-1)
	}()
	newSession(s, conn).serve()
}

// Close stops the listener and closes every open connection.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	return err
}

// Stats returns the current counters and the idle timeout a session
// would get right now.
func (s *Server) Stats() Stats {
	active := s.active.Load()
	return Stats{
		Active:      active,
		Served:      s.served.Load(),
		IdleTimeout: s.heuristic.Timeout(active),
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}
