// Package netutil builds the outbound HTTP clients used for the Telegram API and the
// lookup providers.
package netutil

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// ShouldRetry reports whether err is a network failure worth another attempt: a
// refused or failed dial, or a timeout. Cancellation never is.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// retryTransport repeats a round trip after transient network errors. Requests whose
// body cannot be replayed are sent once.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !replayable(req) {
		return t.base.RoundTrip(req)
	}
	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		try := req
		if attempt > 0 {
			try = req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				try.Body = body
			}
		}

		resp, err := t.base.RoundTrip(try)
		if err == nil || attempt >= t.retries || !ShouldRetry(err) {
			return resp, err
		}

		timer := time.NewTimer(t.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// delay grows linearly with the attempt and adds up to 20% jitter.
func (t *retryTransport) delay(attempt int) time.Duration {
	d := t.backoff * time.Duration(attempt+1)
	if d <= 0 {
		return 0
	}
	return d + rand.N(d/5+1)
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}
