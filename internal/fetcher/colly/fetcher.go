// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/mediapulse/article-crawler/internal/crawler"
	"github.com/mediapulse/article-crawler/internal/metrics"
)

// DefaultUserAgent is a realistic desktop browser signature; many news sites
// serve reduced markup to obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config controls collector and retry behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Fetcher issues rate-limited, retrying GETs through a Colly collector.
type Fetcher struct {
	cfg           Config
	limiter       crawler.RateLimiter
	logger        *zap.Logger
	baseCollector *colly.Collector
}

// New builds a Fetcher. Zero config fields fall back to the documented
// defaults: 10s timeout, 5 redirects, 2s flat backoff. MaxRetries is taken
// as given so zero genuinely means no retries; negative values count as
// zero.
func New(cfg Config, limiter crawler.RateLimiter, logger *zap.Logger) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 5
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	// Clones share the visited-URL store; retries must revisit.
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		logger:        logger,
		baseCollector: c,
	}
}

// Fetch retrieves url, retrying transient failures up to MaxRetries extra
// attempts with a flat backoff between them. The returned error is terminal
// for this URL; callers do not retry again.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.IncFetchRetry()
			f.logger.Warn("retrying fetch",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := sleep(ctx, f.cfg.RetryBackoff); err != nil {
				return nil, err
			}
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("acquire rate token: %w", err)
			}
		}

		body, err := f.visit(ctx, url)
		if err == nil {
			metrics.IncFetchAttempt("ok")
			return body, nil
		}
		metrics.IncFetchAttempt("error")
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, ctx.Err())
		}
	}
	return nil, fmt.Errorf("fetch %s: retries exhausted: %w", url, lastErr)
}

// visit runs one collector pass and captures the response body.
func (f *Fetcher) visit(ctx context.Context, url string) ([]byte, error) {
	var (
		body     []byte
		fetchErr error
	)

	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	maxRedirects := f.cfg.MaxRedirects
	collector.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	})

	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit failed: %w", err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("response failed: %w", fetchErr)
		}
		return body, nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
