package request

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dylanmazurek/debridify/internal/logger"
	"github.com/dylanmazurek/debridify/pkg/version"
	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"
	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds connect, TLS handshake, response headers and the whole exchange.
const DefaultTimeout = 30 * time.Second

func JoinURL(base string, paths ...string) (string, error) {
	// Split the last path component to separate query parameters
	lastPath := paths[len(paths)-1]
	parts := strings.Split(lastPath, "?")
	paths[len(paths)-1] = parts[0]

	joined, err := url.JoinPath(base, paths...)
	if err != nil {
		return "", err
	}

	if len(parts) > 1 {
		return joined + "?" + parts[1], nil
	}

	return joined, nil
}

type ClientOption func(*Client)

// Client is an HTTP client with rate limiting, proxy support and request authentication.
// It never retries.
type Client struct {
	client        *http.Client
	rateLimiter   ratelimit.Limiter
	authenticator *Authenticator
	headers       map[string]string
	headersMu     sync.RWMutex
	timeout       time.Duration
	logger        zerolog.Logger
	proxy         string
}

// WithTimeout sets the request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRateLimiter sets a rate limiter
func WithRateLimiter(rl ratelimit.Limiter) ClientOption {
	return func(c *Client) {
		c.rateLimiter = rl
	}
}

// WithHeaders sets default headers
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		c.headersMu.Lock()
		for k, v := range headers {
			c.headers[k] = v
		}
		c.headersMu.Unlock()
	}
}

// WithAuthenticator attaches credentials to every outgoing request.
func WithAuthenticator(a *Authenticator) ClientOption {
	return func(c *Client) {
		c.authenticator = a
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxy = proxyURL
	}
}

// Do sends req once. Authentication runs before the rate limiter so a failed
// credential lookup costs no token and no network I/O.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.headersMu.RLock()
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	c.headersMu.RUnlock()

	if c.authenticator != nil {
		if err := c.authenticator.Apply(req); err != nil {
			return nil, &TransportError{Method: req.Method, URL: redact(req.URL), Err: err}
		}
	}

	if c.rateLimiter != nil {
		if err := c.take(req.Context()); err != nil {
			return nil, &TransportError{Method: req.Method, URL: redact(req.URL), Err: err}
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: redact(req.URL), Err: err}
	}

	return resp, nil
}

// take blocks for a rate limiter token or until ctx is done. A token taken
// after ctx ends is lost.
func (c *Client) take(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	taken := make(chan struct{})
	go func() {
		c.rateLimiter.Take()
		close(taken)
	}()

	select {
	case <-taken:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MakeRequest performs an HTTP request and returns the response body as bytes.
// Non-2xx responses are returned as *HTTPError carrying the body.
func (c *Client) MakeRequest(req *http.Request) ([]byte, error) {
	res, err := c.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := res.Body.Close(); err != nil {
			c.logger.Printf("Failed to close response body: %v", err)
		}
	}()

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: redact(req.URL), Err: fmt.Errorf("reading response body: %w", err)}
	}

	c.logger.Trace().
		Str("method", req.Method).
		Str("url", redact(req.URL)).
		Int("status", res.StatusCode).
		Int("bytes", len(bodyBytes)).
		Msg("request completed")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: bodyBytes}
	}

	return bodyBytes, nil
}

// New creates a new HTTP client with the specified options
func New(options ...ClientOption) *Client {
	client := &Client{
		logger:  logger.New("request"),
		timeout: DefaultTimeout,
		headers: map[string]string{
			"User-Agent": version.UserAgent(),
		},
	}

	client.client = &http.Client{}

	// Apply options before configuring transport
	for _, option := range options {
		option(client)
	}

	client.client.Timeout = client.timeout

	if client.client.Transport == nil {
		dialer := &net.Dialer{Timeout: client.timeout}
		transport := &http.Transport{
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   client.timeout,
			ResponseHeaderTimeout: client.timeout,
			DisableKeepAlives:     false,
		}

		if client.proxy != "" {
			if strings.HasPrefix(client.proxy, "socks5://") {
				socksURL, err := url.Parse(client.proxy)
				if err != nil {
					client.logger.Error().Msgf("Failed to parse SOCKS5 proxy URL: %v", err)
				} else {
					auth := &proxy.Auth{}
					if socksURL.User != nil {
						auth.User = socksURL.User.Username()
						password, _ := socksURL.User.Password()
						auth.Password = password
					}

					socks, err := proxy.SOCKS5("tcp", socksURL.Host, auth, dialer)
					if err != nil {
						client.logger.Error().Msgf("Failed to create SOCKS5 dialer: %v", err)
					} else if cd, ok := socks.(proxy.ContextDialer); ok {
						transport.DialContext = cd.DialContext
					} else {
						transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
							return socks.Dial(network, addr)
						}
					}
				}
			} else {
				proxyURL, err := url.Parse(client.proxy)
				if err != nil {
					client.logger.Error().Msgf("Failed to parse proxy URL: %v", err)
				} else {
					transport.Proxy = http.ProxyURL(proxyURL)
				}
			}
		} else {
			transport.Proxy = http.ProxyFromEnvironment
		}

		client.client.Transport = transport
	}

	return client
}

func ParseRateLimit(rateStr string) ratelimit.Limiter {
	if rateStr == "" {
		return nil
	}
	parts := strings.SplitN(rateStr, "/", 2)
	if len(parts) != 2 {
		return nil
	}

	count, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || count <= 0 {
		return nil
	}

	// Set slack size to 10%
	slackSize := count / 10

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	unit = strings.TrimSuffix(unit, "s")
	switch unit {
	case "minute", "min":
		return ratelimit.New(count, ratelimit.Per(time.Minute), ratelimit.WithSlack(slackSize))
	case "second", "sec":
		return ratelimit.New(count, ratelimit.Per(time.Second), ratelimit.WithSlack(slackSize))
	case "hour", "hr":
		return ratelimit.New(count, ratelimit.Per(time.Hour), ratelimit.WithSlack(slackSize))
	case "day", "d":
		return ratelimit.New(count, ratelimit.Per(24*time.Hour), ratelimit.WithSlack(slackSize))
	default:
		return nil
	}
}

func JSONResponse(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		return
	}
}

// redact hides credential query parameters before a URL is logged or wrapped in an error.
func redact(u *url.URL) string {
	if u == nil {
		return ""
	}

	q := u.Query()
	changed := false
	for _, key := range []string{"api_key", "token", "apikey"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
			changed = true
		}
	}

	if !changed {
		return u.String()
	}

	clone := *u
	clone.RawQuery = q.Encode()
	return clone.String()
}
