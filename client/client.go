// Package client implements the file client: a connection pool with
// keep-alive reuse and a reconnect protocol, a response cache, and a run
// loop executing queued requests.
package client

import (
	"context"
	"errors"

	filehttp "github.com/always-cache/filehttp"
	"github.com/always-cache/filehttp/cache"
	"github.com/always-cache/filehttp/pkg/message"
	"github.com/always-cache/filehttp/pkg/wire"
	"github.com/rs/zerolog"
)

type Config struct {
	Pool PoolConfig
	// Storage for responses. An in-memory cache is used if nil.
	Cache cache.CacheProvider
	// Bounds on response lines and bodies. Also used by the pool unless
	// Pool.Limits is set.
	Limits wire.Limits
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

// Job is a request together with the server it is sent to.
type Job struct {
	Request *message.Request
	Host    string
	Port    int
}

type Client struct {
	pool  *Pool
	cache *ResponseCache
	store cache.CacheProvider
	log   zerolog.Logger
}

func New(config Config) *Client {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	if config.Pool.Logger == nil {
		config.Pool.Logger = &logger
	}
	if config.Pool.Limits == (wire.Limits{}) {
		config.Pool.Limits = config.Limits
	}
	store := config.Cache
	if store == nil {
		store = cache.NewMemCache()
	}
	return &Client{
		pool:  NewPool(config.Pool),
		cache: NewResponseCache(store, config.Limits, logger),
		store: store,
		log:   logger,
	}
}

// Execute sends req to host:port, or answers it from the cache.
// The connection stays pooled only if both the request and the response
// ask for it.
func (c *Client) Execute(ctx context.Context, host string, port int, req *message.Request) (*message.Response, error) {
	var conn *Conn
	supplier := func(ctx context.Context) (*Conn, error) {
		var err error
		conn, err = c.pool.GetOrCreate(ctx, host, port, req.Persists())
		return conn, err
	}

	res, err := c.cache.Process(ctx, req, host, supplier)
	if conn != nil && (err != nil || !req.Persists() || !res.Persists()) {
		c.discard(host, port, conn)
	}
	return res, err
}

func (c *Client) discard(host string, port int, conn *Conn) {
	if conn.Persistent {
		_ = c.pool.Remove(host, port)
	}
	conn.Close()
}

// Run executes the jobs in order and then closes every pooled connection.
// A failing job is logged and skipped. Run stops early only when ctx is done.
func (c *Client) Run(ctx context.Context, jobs []Job) error {
	defer func() {
		if err := c.pool.DisposeAll(); err != nil {
			c.log.Warn().Err(err).Msg("Could not close pooled connections")
		}
	}()
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := c.log.With().
			Str("verb", string(job.Request.Verb)).
			Str("path", job.Request.Path).
			Str("host", job.Host).
			Int("port", job.Port).
			Logger()

		res, err := c.Execute(ctx, job.Host, job.Port, job.Request)
		var connErr *filehttp.ConnectionError
		switch {
		case errors.As(err, &connErr):
			log.Error().Err(err).Msg("Connection failed, request dropped")
		case err != nil && res == nil:
			log.Error().Err(err).Msg("Request failed")
		case err != nil:
			log.Error().Err(err).Int("status", res.StatusCode).Msg("Could not handle response body")
		default:
			log.Info().Int("status", res.StatusCode).Msg(res.StatusMessage)
			log.Trace().Msgf("Received: %s", res)
		}
	}
	return nil
}

// Pool returns the client's connection pool.
func (c *Client) Pool() *Pool {
	return c.pool
}

// Close closes the pooled connections and the cache provider.
func (c *Client) Close() error {
	poolErr := c.pool.DisposeAll()
	if err := c.store.Close(); err != nil {
		return err
	}
	return poolErr
}
