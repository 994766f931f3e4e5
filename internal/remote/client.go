// Package remote holds the per-account HTTP session client shared by every
// service flavor. A Client owns one account's transport and nothing else;
// session material such as cookies and tokens lives in the flavor's session
// and is attached to requests explicitly.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	browser "github.com/itzngga/fake-useragent"

	checkinerrors "github.com/bgricker/checkin/internal/errors"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// RandomUserAgent selects a random desktop Chrome user agent per run.
const RandomUserAgent = "random"

// Options configure a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// Retries re-sends a request that failed at the transport level.
	Retries    int
	RetryDelay time.Duration
}

// Client is the per-account RemoteSessionClient.
type Client struct {
	http *resty.Client
}

// New builds a Client. The cookie jar is disabled so cookies only travel
// when a session attaches them.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	c := resty.New().
		SetTimeout(opts.Timeout).
		SetCookieJar(nil).
		SetHeader("User-Agent", UserAgent(opts.UserAgent))
	if opts.BaseURL != "" {
		c.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	}
	if len(opts.Headers) > 0 {
		c.SetHeaders(opts.Headers)
	}
	if opts.Retries > 0 {
		delay := opts.RetryDelay
		if delay <= 0 {
			delay = time.Second
		}
		c.SetRetryCount(opts.Retries).SetRetryWaitTime(delay)
	}
	return &Client{http: c}
}

// UserAgent resolves a configured user agent setting.
func UserAgent(setting string) string {
	switch s := strings.TrimSpace(setting); s {
	case "":
		return DefaultUserAgent
	case RandomUserAgent:
		return browser.Chrome()
	default:
		return s
	}
}

// Request starts a request bound to ctx.
func (c *Client) Request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// Do sends req and maps transport failures and server errors to a
// TransportError for step. Client errors are returned with the response so
// the caller can read a structured rejection from the body.
func Do(step string, req *resty.Request, method, url string) (*resty.Response, error) {
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, checkinerrors.Transport(step, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return resp, checkinerrors.Transport(step, fmt.Errorf("HTTP %d", resp.StatusCode()))
	}
	return resp, nil
}

// DecodeJSON decodes the response body into v.
func DecodeJSON(step string, resp *resty.Response, v any) error {
	body := resp.Body()
	if len(body) == 0 {
		return checkinerrors.Parse(step, fmt.Sprintf("empty response (HTTP %d)", resp.StatusCode()), nil)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return checkinerrors.Parse(step, fmt.Sprintf("response is not JSON (HTTP %d)", resp.StatusCode()), err)
	}
	return nil
}

// Cookie returns the named cookie set by resp, if any.
func Cookie(resp *resty.Response, name string) (*http.Cookie, bool) {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Flag is a JSON success indicator that services send as an integer, a
// boolean or a numeric string.
type Flag int

// UnmarshalJSON accepts 1, true and "1" alike.
func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch s {
	case "true":
		*f = 1
	case "false", "", "null":
		*f = 0
	default:
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return fmt.Errorf("invalid flag %q", s)
		}
		*f = Flag(n)
	}
	return nil
}
