package netutil

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultResponseTimeout   = 5 * time.Second
	defaultClientTimeout     = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 2 * time.Second
)

// ClientOptions tune BuildHTTPClient. Zero values select the defaults.
type ClientOptions struct {
	Timeout         time.Duration
	ResponseTimeout time.Duration
	Retries         int
	Backoff         time.Duration
	// UserAgent is set on requests that do not carry one.
	UserAgent string
}

// BuildHTTPClient returns an HTTP client with pooled keep-alive connections and retries
// on transient network failures.
func BuildHTTPClient(opts ClientOptions) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultClientTimeout
	}
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = defaultResponseTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	} else if opts.Retries == 0 {
		opts.Retries = defaultRetryAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultRetryBackoff
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: opts.ResponseTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	var rt http.RoundTripper = &retryTransport{
		base:    transport,
		retries: opts.Retries,
		backoff: opts.Backoff,
	}
	if opts.UserAgent != "" {
		rt = &userAgentTransport{base: rt, agent: opts.UserAgent}
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: rt,
	}
}

type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(clone)
}
