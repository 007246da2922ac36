package chart

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// FetcherConfig controls chart page retrieval.
type FetcherConfig struct {
	BaseURL       string
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Fetcher retrieves chart pages over HTTP and parses them into entries.
type Fetcher struct {
	cfg           FetcherConfig
	baseCollector *colly.Collector
}

// NewFetcher builds a Fetcher backed by a Colly collector with a pooled
// transport.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// FetchEntries fetches the chart page for one slug and aligned date and
// returns its parsed entries. Network and HTTP failures are returned as
// errors; degraded markup just yields fewer entries.
func (f *Fetcher) FetchEntries(ctx context.Context, slug string, date time.Time) ([]Entry, error) {
	collector := f.buildCollector()

	var body []byte
	var fetchErr error
	collector.OnRequest(func(r *colly.Request) {
		// Browser-like headers; chart pages reject obvious bots.
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Cache-Control", "no-cache")
	})
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	url := fmt.Sprintf("%s/charts/%s/%s/", f.cfg.BaseURL, slug, date.Format("2006-01-02"))
	if err := f.visit(ctx, collector, url, &fetchErr); err != nil {
		return nil, err
	}
	return ParseEntries(string(body)), nil
}

func (f *Fetcher) buildCollector() *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	return collector
}

func (f *Fetcher) visit(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("chart fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("chart visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("chart response failed: %w", *fetchErr)
		}
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
