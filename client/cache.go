package client

import (
	"context"
	"errors"
	"io"
	"net"

	filehttp "github.com/always-cache/filehttp"
	"github.com/always-cache/filehttp/cache"
	cachekey "github.com/always-cache/filehttp/pkg/cache-key"
	"github.com/always-cache/filehttp/pkg/message"
	"github.com/always-cache/filehttp/pkg/wire"
	"github.com/rs/zerolog"
)

// ErrNoResponse is returned when the server closed the connection without
// sending anything back.
var ErrNoResponse = errors.New("server closed the connection without a response")

// ConnSupplier opens the connection a request is sent over. It is only
// called when the request cannot be answered from the cache.
type ConnSupplier func(ctx context.Context) (*Conn, error)

// ResponseCache answers GET requests from a cache provider and forwards
// everything else to the network. Only 200 responses are stored.
type ResponseCache struct {
	provider cache.CacheProvider
	limits   wire.Limits
	log      zerolog.Logger
}

func NewResponseCache(provider cache.CacheProvider, limits wire.Limits, logger zerolog.Logger) *ResponseCache {
	return &ResponseCache{
		provider: provider,
		limits:   limits,
		log:      logger,
	}
}

// IsCached reports whether req would be answered from the cache.
func (c *ResponseCache) IsCached(req *message.Request, host string) bool {
	key, err := cachekey.GetKey(req, host)
	return err == nil && c.provider.Has(key)
}

// Process returns the response for req, from the cache when possible and
// otherwise by sending req over the connection from supplier. The request's
// body consumers receive the body of every successful response.
func (c *ResponseCache) Process(ctx context.Context, req *message.Request, host string, supplier ConnSupplier) (*message.Response, error) {
	key, keyErr := cachekey.GetKey(req, host)
	log := c.log.With().Str("verb", string(req.Verb)).Str("path", req.Path).Logger()

	if keyErr == nil {
		res, found, err := c.provider.Get(key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Could not read cache")
		}
		if found {
			log.Debug().Str("key", key).Msg("Cache hit")
			return res, consume(req, res)
		}
	}

	conn, err := supplier(ctx)
	if err != nil {
		return nil, err
	}
	log.Trace().Msgf("Sending: %s", req)
	if err := wire.WriteRequest(conn, req); err != nil {
		return nil, &filehttp.ConnectionError{Addr: conn.RemoteAddr().String(), Err: err}
	}
	res, err := readFinalResponse(conn, c.limits)
	if err != nil {
		return nil, err
	}

	if keyErr == nil && res.StatusCode == 200 {
		if err := c.provider.Put(key, res); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Could not store response")
		} else {
			log.Debug().Str("key", key).Msg("Response cached")
		}
	}
	return res, consume(req, res)
}

// readFinalResponse skips interim responses.
func readFinalResponse(conn *Conn, limits wire.Limits) (*message.Response, error) {
	for {
		res, err := wire.ReadResponse(conn.R, limits)
		if err == io.EOF {
			return nil, ErrNoResponse
		}
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &filehttp.ConnectionError{Addr: conn.RemoteAddr().String(), Err: err}
		}
		if err != nil {
			return nil, err
		}
		if res.StatusCode >= 200 {
			return res, nil
		}
	}
}

func consume(req *message.Request, res *message.Response) error {
	if res.StatusCode < 200 || res.StatusCode > 299 || len(res.Body) == 0 {
		return nil
	}
	return req.Consume(res.Body)
}
