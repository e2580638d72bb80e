// Package supabase talks to the Supabase Management API: the log
// analytics endpoint used as a query source, and the project and
// organization listings used by the CLI.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
)

// DefaultBaseURL is the public Management API host.
const DefaultBaseURL = "https://api.supabase.com"

// Retry policy for 429 responses: delays of 1s, 2s, 4s plus up to 0.5s jitter.
const (
	DefaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	maxJitter         = 500 * time.Millisecond
	maxErrorBody      = 512
)

// Options configures a client.
type Options struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
	// RateLimitRPS caps outgoing requests per second; zero disables limiting.
	RateLimitRPS float64
	MaxRetries   int
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
	// Sleep replaces the context-aware sleep between retries.
	Sleep func(ctx context.Context, d time.Duration) error
	// RandomSeed makes jitter reproducible when non-zero.
	RandomSeed int64
}

// client is the shared transport for the log and management clients.
type client struct {
	baseURL    string
	token      string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error

	randMu sync.Mutex
	rng    *rand.Rand
}

func newClient(opts Options) *client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	return &client{
		baseURL:    baseURL,
		token:      opts.AccessToken,
		http:       hc,
		limiter:    limiter,
		maxRetries: maxRetries,
		sleep:      sleep,
		//nolint:gosec // jitter only
		rng: rand.New(rand.NewSource(seed)),
	}
}

// getJSON issues an authenticated GET and decodes the JSON body into out.
// 429 responses are retried with exponential backoff; every other non-2xx
// status fails immediately with an *APIError.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	log := logger.L()

	var lastRetryAfter time.Duration
	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, path, query)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastRetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			drain(resp)
			if attempt >= c.maxRetries {
				return &RateLimitError{RetryAfter: lastRetryAfter, Attempts: attempt + 1}
			}
			delay := c.backoff(attempt)
			log.Warnw("rate limited, backing off",
				"path", path,
				"attempt", attempt+1,
				"delay", delay,
				"retry_after", lastRetryAfter,
			)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			return &APIError{
				StatusCode: resp.StatusCode,
				Method:     http.MethodGet,
				Path:       path,
				Body:       strings.TrimSpace(string(body)),
			}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
		return nil
	}
}

func (c *client) do(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return resp, nil
}

// backoff returns base*2^attempt plus uniform jitter in [0, 0.5s).
func (c *client) backoff(attempt int) time.Duration {
	c.randMu.Lock()
	jitter := time.Duration(c.rng.Int63n(int64(maxJitter)))
	c.randMu.Unlock()
	return defaultBaseDelay<<attempt + jitter
}

// parseRetryAfter reads delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
