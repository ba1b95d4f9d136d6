package signals

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
)

// Fetcher retrieves raw page bodies for a signal source.
type Fetcher interface {
	Fetch(ctx context.Context, src SourceConfig, pageURL string) ([]byte, error)
}

// CollyFetcher fetches review pages with per-domain rate limiting and
// retries.
type CollyFetcher struct {
	UserAgent       string
	MaxBodySize     int
	IgnoreRobotsTxt bool
}

func NewCollyFetcher() *CollyFetcher {
	return &CollyFetcher{
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		MaxBodySize: 10 * 1024 * 1024, // 10MB
	}
}

func (f *CollyFetcher) buildCollector(src SourceConfig, domain string) (*colly.Collector, error) {
	opts := []colly.CollectorOption{
		colly.UserAgent(f.UserAgent),
		colly.MaxBodySize(f.MaxBodySize),
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
	}
	if domain != "" {
		opts = append(opts, colly.AllowedDomains(domain))
	}
	if f.IgnoreRobotsTxt {
		opts = append(opts, colly.IgnoreRobotsTxt())
	}

	collector := colly.NewCollector(opts...)

	timeout := src.Fetch.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	collector.SetRequestTimeout(time.Duration(timeout) * time.Second)

	rps := src.Fetch.RateLimitRPS
	if rps <= 0 {
		rps = 1.0
	}
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      time.Duration(float64(time.Second) / rps),
	}); err != nil {
		return nil, fmt.Errorf("failed to set rate limit: %w", err)
	}

	return collector, nil
}

func (f *CollyFetcher) Fetch(ctx context.Context, src SourceConfig, pageURL string) ([]byte, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	collector, err := f.buildCollector(src, parsed.Hostname())
	if err != nil {
		return nil, err
	}

	var body []byte
	var fetchErr error

	collector.OnRequest(func(r *colly.Request) {
		if lang := src.Fetch.AcceptLanguage; lang != "" {
			r.Headers.Set("Accept-Language", lang)
		}
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	maxRetries := src.Fetch.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		fetchErr = nil
		if err := collector.Visit(pageURL); err != nil {
			fetchErr = err
		}
		collector.Wait()
		if fetchErr == nil && len(body) > 0 {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if fetchErr != nil {
		return nil, fmt.Errorf("fetch failed after %d attempts: %w", maxRetries, fetchErr)
	}
	return nil, fmt.Errorf("empty body from %s", pageURL)
}
