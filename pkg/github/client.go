package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/canopy-network/trackx/pkg/metrics"
	"github.com/canopy-network/trackx/pkg/retry"
	"github.com/canopy-network/trackx/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when GitHub rejects a request because the API quota is exhausted.
var ErrRateLimited = errors.New("github rate limit exceeded")

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("github http %d", e.Status)
	}
	return fmt.Sprintf("github http %d: %s", e.Status, e.Body)
}

// Client is a GitHub REST client that caps in-flight requests (MCR) and request starts per second (RPS).
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	sem     *semaphore.Weighted
	mcr     int64
	limiter *rate.Limiter
	retry   retry.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Opts is the set of options for a new Client.
type Opts struct {
	BaseURL               string
	Token                 string
	MaxConcurrentRequests int
	RequestsPerSecond     int
	Timeout               time.Duration
	HTTPClient            *http.Client
	Retry                 *retry.Config
	Logger                *zap.Logger
	Metrics               *metrics.Metrics
}

// OptsFromEnv reads GITHUB_ACCESS_TOKEN, GITHUB_API_URL, GITHUB_MAX_CONCURRENT_REQUESTS and GITHUB_REQUESTS_PER_SECOND.
func OptsFromEnv() Opts {
	return Opts{
		BaseURL:               utils.Env("GITHUB_API_URL", DefaultBaseURL),
		Token:                 utils.Env("GITHUB_ACCESS_TOKEN", ""),
		MaxConcurrentRequests: utils.EnvInt("GITHUB_MAX_CONCURRENT_REQUESTS", 5),
		RequestsPerSecond:     utils.EnvInt("GITHUB_REQUESTS_PER_SECOND", 10),
	}
}

// NewClient creates a new Client with the given options.
func NewClient(o Opts) *Client {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.MaxConcurrentRequests <= 0 {
		o.MaxConcurrentRequests = 5
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 10
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	retryCfg := retry.RequestConfig()
	if o.Retry != nil {
		retryCfg = *o.Retry
	}
	retryCfg.Retryable = isRetryable

	return &Client{
		baseURL: strings.TrimRight(o.BaseURL, "/"),
		token:   o.Token,
		client:  client,
		sem:     semaphore.NewWeighted(int64(o.MaxConcurrentRequests)),
		mcr:     int64(o.MaxConcurrentRequests),
		// burst of one keeps starts evenly spread over the second
		limiter: rate.NewLimiter(rate.Limit(o.RequestsPerSecond), 1),
		retry:   retryCfg,
		logger:  o.Logger,
		metrics: o.Metrics,
	}
}

func (c *Client) maxConcurrent() int64 {
	return c.mcr
}

// getJSON issues a GET and decodes the body into out. Transport errors and 5xx are retried;
// every attempt goes through the MCR and RPS limits.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return retry.WithBackoff(ctx, c.retry, c.logger, "github "+endpoint, func() error {
		return c.do(ctx, endpoint, u, out)
	})
}

func (c *Client) do(ctx context.Context, endpoint, u string, out any) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return retry.Permanent(err)
	}
	defer c.sem.Release(1)

	if err := c.limiter.Wait(ctx); err != nil {
		return retry.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.ObserveGitHub(endpoint, 0, start)
		return err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()
	c.metrics.ObserveGitHub(endpoint, resp.StatusCode, start)

	if resp.StatusCode >= 300 {
		if isRateLimited(resp) {
			return retry.Permanent(fmt.Errorf("%w: resets at %s", ErrRateLimited, resp.Header.Get("X-RateLimit-Reset")))
		}
		return &StatusError{Status: resp.StatusCode, Body: utils.Snippet(resp.Body, 256)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("decode %s response: %w", endpoint, err))
	}
	return nil
}

func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// isRetryable retries transport errors and server errors, never other status codes.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500
	}
	return true
}
