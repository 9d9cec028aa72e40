// Package fetcher retrieves Bazaraki pages with request pacing and retry.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrUnavailable marks a resource that exhausted its retries this cycle.
// The cycle skips it and continues with the remaining pages.
var ErrUnavailable = errors.New("resource unavailable this cycle")

// errBlocked marks an anti-bot interstitial served with a 200.
var errBlocked = errors.New("blocked by anti-bot challenge")

// userAgents is rotated per request to look less like a single client.
var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
}

// Config controls pacing and retry behaviour.
type Config struct {
	SearchURL string
	// MinInterval is the minimum spacing between any two requests.
	MinInterval time.Duration
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// RetryBackoff is the base delay doubled on each failed attempt.
	RetryBackoff   time.Duration
	RequestTimeout time.Duration
	AllowedDomains []string
}

func (c Config) withDefaults() Config {
	if c.MinInterval <= 0 {
		c.MinInterval = 3 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 5 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}

// Fetcher fetches listing index pages and ad detail pages. A single rate
// limiter paces all requests, including parallel detail fetches.
type Fetcher struct {
	cfg     Config
	base    *colly.Collector
	limiter *rate.Limiter
	log     *zap.Logger
	rng     *rand.Rand
	rngMu   sync.Mutex
}

// New creates a Fetcher for the configured search URL.
func New(cfg Config, log *zap.Logger) (*Fetcher, error) {
	cfg = cfg.withDefaults()

	parsed, err := url.Parse(cfg.SearchURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search url: %w", err)
	}

	domains := cfg.AllowedDomains
	if len(domains) == 0 {
		host := parsed.Hostname()
		domains = []string{host, strings.TrimPrefix(host, "www.")}
	}

	base := colly.NewCollector(
		colly.AllowedDomains(domains...),
		colly.AllowURLRevisit(),
		colly.MaxDepth(1),
	)
	base.SetRequestTimeout(cfg.RequestTimeout)

	return &Fetcher{
		cfg:     cfg,
		base:    base,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		log:     log,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// FetchIndex retrieves one page of search results.
func (f *Fetcher) FetchIndex(ctx context.Context, page int) (string, error) {
	sep := "?"
	if strings.Contains(f.cfg.SearchURL, "?") {
		sep = "&"
	}
	return f.fetch(ctx, fmt.Sprintf("%s%spage=%d", f.cfg.SearchURL, sep, page))
}

// FetchDetail retrieves a single ad page.
func (f *Fetcher) FetchDetail(ctx context.Context, adURL string) (string, error) {
	return f.fetch(ctx, adURL)
}

// fetch performs one paced request with bounded exponential backoff. After
// the final attempt fails it returns ErrUnavailable wrapped around the last
// error, so one bad page never aborts the whole cycle.
func (f *Fetcher) fetch(ctx context.Context, pageURL string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := f.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
			f.log.Warn("retrying fetch",
				zap.String("url", pageURL),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}

		body, err := f.visit(ctx, pageURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	f.log.Error("giving up on resource for this cycle",
		zap.String("url", pageURL),
		zap.Int("attempts", f.cfg.MaxRetries+1),
		zap.Error(lastErr),
	)
	return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, pageURL, lastErr)
}

// visit performs a single request on a collector clone. Cloning keeps the
// shared collector free of per-call callbacks so detail fetches can run in
// parallel.
func (f *Fetcher) visit(ctx context.Context, pageURL string) (string, error) {
	c := f.base.Clone()
	c.UserAgent = f.pickUserAgent()

	var (
		body     string
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		if err := ctx.Err(); err != nil {
			r.Abort()
			fetchErr = err
			return
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(pageURL); err != nil {
		return "", err
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	if isChallengePage(body) {
		f.log.Error("anti-bot challenge page detected", zap.String("url", pageURL))
		return "", errBlocked
	}
	return body, nil
}

// isChallengePage recognizes interstitials served with a 200 status.
func isChallengePage(body string) bool {
	return strings.Contains(body, "<title>Just a moment...</title>") ||
		strings.Contains(strings.ToLower(body), "checking your browser")
}

func (f *Fetcher) pickUserAgent() string {
	f.rngMu.Lock()
	defer f.rngMu.Unlock()
	return userAgents[f.rng.Intn(len(userAgents))]
}
