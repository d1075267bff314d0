package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	filehttp "github.com/always-cache/filehttp"
	"github.com/always-cache/filehttp/pkg/wire"
	"github.com/rs/zerolog"
)

// Conn is a client socket with its read buffer.
// Responses must always be read through R.
type Conn struct {
	net.Conn
	R *bufio.Reader
	// Persistent is set when the connection belongs to the pool.
	Persistent bool
}

type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type PoolConfig struct {
	// Dial opens new connections. A net.Dialer is used if nil.
	Dial DialFunc
	// How long a pooled socket may stay silent during the liveness probe.
	ProbeTimeout time.Duration
	Retry        RetryPolicy
	// Bounds on the responses read during the retry protocol.
	Limits wire.Limits
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

// Pool keeps one persistent connection per host:port.
// Operations on the same key are serialized; different keys proceed
// independently.
type Pool struct {
	dial         DialFunc
	probeTimeout time.Duration
	retry        RetryPolicy
	limits       wire.Limits
	log          zerolog.Logger

	mu    sync.Mutex
	conns map[string]*Conn
	locks map[string]*keyLock
}

// keyLock serializes operations on one key. It is dropped from the pool
// once nobody holds or waits for it.
type keyLock struct {
	sync.Mutex
	refs int
}

func NewPool(config PoolConfig) *Pool {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	dial := config.Dial
	if dial == nil {
		d := &net.Dialer{Timeout: 5 * time.Second}
		dial = d.DialContext
	}
	return &Pool{
		dial:         dial,
		probeTimeout: config.ProbeTimeout,
		retry:        config.Retry,
		limits:       config.Limits,
		log:          logger,
		conns:        make(map[string]*Conn),
		locks:        make(map[string]*keyLock),
	}
}

func poolKey(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (p *Pool) lock(key string) *keyLock {
	p.mu.Lock()
	lock, ok := p.locks[key]
	if !ok {
		lock = &keyLock{}
		p.locks[key] = lock
	}
	lock.refs++
	p.mu.Unlock()

	lock.Lock()
	return lock
}

func (p *Pool) unlock(key string, lock *keyLock) {
	lock.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(p.locks, key)
	}
}

func (p *Pool) get(key string) (*Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[key]
	return c, ok
}

func (p *Pool) put(key string, c *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[key] = c
}

func (p *Pool) take(key string) (*Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[key]
	delete(p.conns, key)
	return c, ok
}

// GetOrCreate returns the pooled connection to host:port if it is still
// alive. A dead one is replaced through the retry protocol. Without a pooled
// connection a new one is dialed. The connection joins the pool only when
// persistent is set.
func (p *Pool) GetOrCreate(ctx context.Context, host string, port int, persistent bool) (*Conn, error) {
	key := poolKey(host, port)
	lock := p.lock(key)
	defer p.unlock(key, lock)
	log := p.log.With().Str("host", key).Logger()

	if c, ok := p.get(key); ok {
		if p.alive(c) {
			log.Trace().Msg("Reusing pooled connection")
			return c, nil
		}
		log.Debug().Msg("Pooled connection is dead, retrying")
		p.take(key)
		c.Close()
		c, err := p.reconnect(ctx, host, key)
		if err != nil {
			return nil, err
		}
		return p.register(key, c, persistent), nil
	}

	c, err := p.open(ctx, key)
	if err != nil {
		return nil, err
	}
	log.Debug().Bool("persistent", persistent).Msg("Connected")
	return p.register(key, c, persistent), nil
}

func (p *Pool) register(key string, c *Conn, persistent bool) *Conn {
	c.Persistent = persistent
	if persistent {
		p.put(key, c)
	}
	return c
}

// Remove closes and forgets the pooled connection to host:port.
// Removing a key that is not pooled is a no-op.
func (p *Pool) Remove(host string, port int) error {
	key := poolKey(host, port)
	lock := p.lock(key)
	defer p.unlock(key, lock)
	if c, ok := p.take(key); ok {
		p.log.Debug().Str("host", key).Msg("Connection removed from pool")
		return c.Close()
	}
	return nil
}

// DisposeAll closes every pooled connection and returns the first error.
// Operations already running on a key finish first, so a connection they
// pool is disposed as well.
func (p *Pool) DisposeAll() error {
	p.mu.Lock()
	keys := make(map[string]struct{}, len(p.conns)+len(p.locks))
	for key := range p.conns {
		keys[key] = struct{}{}
	}
	for key := range p.locks {
		keys[key] = struct{}{}
	}
	p.mu.Unlock()

	var first error
	for key := range keys {
		lock := p.lock(key)
		c, ok := p.take(key)
		p.unlock(key, lock)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		p.log.Trace().Str("host", key).Msg("Connection disposed")
	}
	return first
}

// Len returns the number of pooled connections.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *Pool) open(ctx context.Context, key string) (*Conn, error) {
	nc, err := p.dial(ctx, "tcp", key)
	if err != nil {
		return nil, &filehttp.ConnectionError{Addr: key, Err: err}
	}
	if tcp, ok := nc.(*net.TCPConn); ok {
		_ = tcp.SetKeepAlive(true)
	}
	return &Conn{Conn: nc, R: bufio.NewReader(nc)}, nil
}

// alive peeks at the socket for a short while. Silence means the peer is
// still there; end of stream or a socket error means it is gone.
func (p *Pool) alive(c *Conn) bool {
	if c.R.Buffered() > 0 {
		return true
	}
	if err := c.SetReadDeadline(time.Now().Add(p.probeTimeout)); err != nil {
		return false
	}
	_, err := c.R.Peek(1)
	if resetErr := c.SetReadDeadline(time.Time{}); resetErr != nil {
		return false
	}
	var netErr net.Error
	return err == nil || (errors.As(err, &netErr) && netErr.Timeout())
}
