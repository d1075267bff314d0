package client

import (
	"context"
	"errors"
	"time"

	filehttp "github.com/always-cache/filehttp"
	"github.com/always-cache/filehttp/pkg/message"
	"github.com/always-cache/filehttp/pkg/wire"
)

var ErrRetriesExhausted = errors.New("server did not accept the connection")

// RetryPolicy configures the reconnect procedure for a pooled connection
// that went away: attempt N waits Base * 2^N for the server's 100 Continue,
// and attempts stop once N exceeds Limit.
type RetryPolicy struct {
	Base  time.Duration
	Limit int
}

var DefaultRetryPolicy = RetryPolicy{
	Base:  5 * time.Second,
	Limit: 5,
}

// Wait returns how long attempt n waits for the interim response.
func (r RetryPolicy) Wait(n int) time.Duration {
	return r.Base << uint(n)
}

type probeResult struct {
	res *message.Response
	err error
}

// reconnect runs the retry protocol against key. Dial failures are
// returned right away.
func (p *Pool) reconnect(ctx context.Context, host, key string) (*Conn, error) {
	log := p.log.With().Str("host", key).Logger()
	for n := 0; n <= p.retry.Limit; n++ {
		c, err := p.open(ctx, key)
		if err != nil {
			return nil, err
		}
		wait := p.retry.Wait(n)
		accepted, persists := p.probe(ctx, c, host, wait)
		if accepted && persists {
			log.Debug().Int("attempt", n).Msg("Server accepted the connection")
			return c, nil
		}
		c.Close()
		if accepted {
			log.Debug().Int("attempt", n).Msg("Server accepted but closed, reconnecting")
			return p.open(ctx, key)
		}
		if err := ctx.Err(); err != nil {
			return nil, &filehttp.ConnectionError{Addr: key, Err: err}
		}
		log.Debug().Int("attempt", n).Dur("waited", wait).Msg("No 100 Continue, retrying")
	}
	return nil, &filehttp.ConnectionError{Addr: key, Err: ErrRetriesExhausted}
}

// probe sends a bodiless POST with Expect: 100-continue and waits up to
// wait for the interim response. When it arrives, the final response to the
// probe is read off the stream as well; persists tells whether the server
// keeps the connection open after it.
func (p *Pool) probe(ctx context.Context, c *Conn, host string, wait time.Duration) (accepted, persists bool) {
	req := message.NewRequest(message.POST, message.HTTP11).
		WithHeader("Host", host).
		WithHeader("Expect", "100-continue").
		Build()
	if err := wire.WriteRequest(c, req); err != nil {
		return false, false
	}

	results := make(chan probeResult, 1)
	go func() {
		res, err := wire.ReadResponse(c.R, p.limits)
		results <- probeResult{res, err}
	}()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case r := <-results:
		if r.err != nil || r.res.StatusCode != 100 {
			return false, false
		}
	case <-timer.C:
		// unblocks the reader
		c.Close()
		<-results
		return false, false
	case <-ctx.Done():
		c.Close()
		<-results
		return false, false
	}

	if err := c.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return true, false
	}
	defer c.SetReadDeadline(time.Time{})
	final, err := wire.ReadResponse(c.R, p.limits)
	if err != nil {
		return true, false
	}
	return true, final.Persists()
}
