package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"go.uber.org/ratelimit"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "RunTV/1.0"

	// maxBodySize caps a single response body (large providers ship playlists
	// of tens of MB).
	maxBodySize = 256 << 20
)

// Options configures a Client. Zero values pick the defaults.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// RateLimit paces outgoing requests (per second). 0 disables pacing.
	RateLimit  int
	HTTPClient *http.Client
}

// Client performs single-attempt GET/HEAD requests with a per-call timeout.
// It never retries.
type Client struct {
	http      *http.Client
	userAgent string
	timeout   time.Duration
	limiter   ratelimit.Limiter
	maxBody   int64
}

var errBodyTooLarge = errors.New("body exceeds limit")

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// NewClient returns a Client configured by opts.
func NewClient(opts Options) *Client {
	c := &Client{
		http:      opts.HTTPClient,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		maxBody:   maxBodySize,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if opts.RateLimit > 0 {
		c.limiter = ratelimit.New(opts.RateLimit)
	} else {
		c.limiter = ratelimit.NewUnlimited()
	}
	return c
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Get issues one GET and reads the whole (decoded) body. Non-2xx statuses are
// returned as a Response, not an error; callers decide what they mean.
// Transport failures come back as *Error classified as timeout, network or
// canceled. The caller's ctx and the per-call timeout share one cancellation.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL)
}

// Head issues one HEAD request. The body is discarded.
func (c *Client) Head(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, http.MethodHead, rawURL)
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, rawURL, nil)
	if err != nil {
		return nil, NewError(ErrInvalidURL, "", fmt.Errorf("NewRequest: %w", err))
	}
	if req.URL.Host == "" {
		return nil, NewError(ErrInvalidURL, "", fmt.Errorf("no host in %q", redact(rawURL)))
	}
	req.Header.Set("User-Agent", c.userAgent)
	if method == http.MethodGet {
		req.Header.Set("Accept-Encoding", "br, gzip")
	}

	c.limiter.Take()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header}
	if method == http.MethodHead {
		return out, nil
	}
	body, err := decodeBody(resp, c.maxBody)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			return nil, NewError(ErrUnexpectedResponse, "", err)
		}
		if callCtx.Err() != nil {
			return nil, classifyTransport(ctx, callCtx.Err())
		}
		return nil, NewError(ErrNetwork, "", fmt.Errorf("read body: %w", err))
	}
	out.Body = body
	return out, nil
}

// decodeBody reads the decoded body. A body longer than limit is an error
// rather than a silent truncation.
func decodeBody(resp *http.Response, limit int64) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	return body, nil
}

// redact strips the query (where Xtream credentials live) from a URL for logs.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i] + "?…"
	}
	return rawURL
}
