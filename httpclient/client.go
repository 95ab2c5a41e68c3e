// Package httpclient provides the HTTP implementation of
// capsule.AssetFetcher. Requests replay the headers and cookies of the
// authenticated browser session captured by the external renderer.
package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Webictbyleo/capsule"
)

// DefaultFetchTimeout is the default per-request timeout. A request that
// exceeds it is counted as a failure without canceling sibling requests.
const DefaultFetchTimeout = 10 * time.Second

// defaultUserAgent mirrors the browser session that produced the markup so
// servers treat asset requests consistently with the rendered page.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Ensure Client implements capsule.AssetFetcher at compile time.
var _ capsule.AssetFetcher = (*Client)(nil)

// Client retrieves asset bytes over HTTP using a shared authentication
// context. The auth context is read-only for the Client's lifetime.
type Client struct {
	client  *http.Client
	auth    capsule.AuthContext
	timeout time.Duration
	referer string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
// Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithReferer sets the Referer header sent with every request, normally the
// captured document's base URL.
func WithReferer(referer string) Option {
	return func(c *Client) {
		c.referer = referer
	}
}

// NewClient creates a Client that fetches with the given auth context.
func NewClient(auth capsule.AuthContext, opts ...Option) *Client {
	c := &Client{
		auth:    auth,
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client = &http.Client{
		Timeout: c.timeout,
	}

	return c
}

// Fetch retrieves the bytes at url.
//
// HTTP 403, 404, and 429 return EFORBIDDEN, ENOTFOUND, and ERATELIMITED;
// the attempt controller treats those as immediate failures. Network
// errors, timeouts, and other non-2xx statuses return EUNAVAILABLE.
func (c *Client) Fetch(ctx context.Context, url string) (*capsule.FetchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, capsule.Errorf(capsule.EINVALID, "build request for %s: %v", url, err)
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}
	for name, value := range c.auth.Headers {
		req.Header.Set(name, value)
	}
	for _, cookie := range c.auth.Cookies {
		if cookieApplies(cookie, req.URL.Hostname()) {
			req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, capsule.Errorf(capsule.EUNAVAILABLE, "timeout fetching %s", url)
		}
		return nil, capsule.Errorf(capsule.EUNAVAILABLE, "fetch %s: %v", url, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, url); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, capsule.Errorf(capsule.EUNAVAILABLE, "read body of %s: %v", url, err)
	}

	return &capsule.FetchResponse{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// statusError maps an HTTP status code to a domain error, or nil for 2xx.
func statusError(code int, url string) error {
	switch code {
	case http.StatusForbidden:
		return capsule.Errorf(capsule.EFORBIDDEN, "HTTP 403 for %s", url)
	case http.StatusNotFound:
		return capsule.Errorf(capsule.ENOTFOUND, "HTTP 404 for %s", url)
	case http.StatusTooManyRequests:
		return capsule.Errorf(capsule.ERATELIMITED, "HTTP 429 for %s", url)
	}
	if code < 200 || code > 299 {
		return capsule.Errorf(capsule.EUNAVAILABLE, "HTTP %d for %s", code, url)
	}
	return nil
}

// cookieApplies reports whether a captured cookie should be sent to host.
// Cookies without a domain are sent everywhere, matching how the original
// session replayed them.
func cookieApplies(cookie capsule.Cookie, host string) bool {
	if cookie.Domain == "" {
		return true
	}
	domain := strings.TrimPrefix(strings.ToLower(cookie.Domain), ".")
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
