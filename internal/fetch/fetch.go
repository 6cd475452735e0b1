// Package fetch provides the shared HTTP layer for all scrapers.
//
// Every scraper issues plain GET requests against server-rendered pages on
// limitlesstcg.com, play.limitlesstcg.com, labs.limitlesstcg.com and
// cardmarket.com. The client carries a browser User-Agent, retries
// transient failures with exponential backoff, and spaces requests with a
// politeness delay so scheduled runs stay under the sites' radar.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/phelbig/tcgdata/internal/logger"
)

const (
	// UserAgent mirrors a desktop browser; several of the scraped pages
	// serve a reduced layout to unknown agents.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	Timeout    = 15 * time.Second
	maxRetries = 3
)

// Client fetches pages with retry and rate limiting.
type Client struct {
	resty *resty.Client
	delay time.Duration
	last  time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithDelay sets the minimum spacing between requests.
func WithDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithCloudflareBypass installs the Cloudflare bypass transport. The
// Cardmarket price pages sit behind Cloudflare and reject vanilla clients.
func WithCloudflareBypass() Option {
	return func(c *Client) {
		hc := c.resty.GetClient()
		if hc.Transport == nil {
			hc.Transport = http.DefaultTransport
		}
		hc.Transport = cloudflarebp.AddCloudFlareByPass(hc.Transport)
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.resty.SetTimeout(d) }
}

// New creates a fetch client.
func New(opts ...Option) *Client {
	r := resty.New().
		SetTimeout(Timeout).
		SetHeader("User-Agent", UserAgent)

	c := &Client{resty: r}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url and returns the response body. Network errors and 5xx
// responses are retried up to three times with exponential backoff; 4xx
// responses fail immediately.
func (c *Client) Get(ctx context.Context, url string) (string, error) {
	c.politeWait(ctx)

	var body string
	operation := func() error {
		start := time.Now()
		resp, err := c.resty.R().SetContext(ctx).Get(url)
		logger.RecordTiming("fetch", time.Since(start))
		logger.IncrCounter("fetch.requests", 1)

		if err != nil {
			logger.IncrCounter("fetch.errors", 1)
			return fmt.Errorf("fetching page: %w", err)
		}
		code := resp.StatusCode()
		switch {
		case code == http.StatusOK:
			body = string(resp.Body())
			return nil
		case code >= 500 || code == http.StatusTooManyRequests:
			logger.IncrCounter("fetch.errors", 1)
			return fmt.Errorf("unexpected status code: %d", code)
		default:
			logger.IncrCounter("fetch.errors", 1)
			return backoff.Permanent(fmt.Errorf("unexpected status code: %d", code))
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	return body, nil
}

// politeWait blocks until the configured delay since the previous request
// has elapsed. The client is used sequentially, as the scrapers are.
func (c *Client) politeWait(ctx context.Context) {
	if c.delay <= 0 {
		return
	}
	if wait := c.delay - time.Since(c.last); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
		}
	}
	c.last = time.Now()
}
