package crawler

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Fetcher retrieves a single page. It is the interface engine.go traverses
// against, so tests can substitute a stub without spinning up colly.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// CollyFetcher implements Fetcher on top of a colly.Collector, cloned once
// per call so concurrent in-flight fetches within one task don't share
// mutable collector state. Grounded directly in the source crawler's
// clone-per-fetch pattern.
type CollyFetcher struct {
	base   *colly.Collector
	logger *zap.Logger
}

// NewCollyFetcher builds a Fetcher bound to the given scoped HTTP client.
// The client's transport (headers, retries, HTTP/2) is reused by colly via
// WithTransport so C1's guarantees apply uniformly to every fetch.
func NewCollyFetcher(client *ScopedClient, userAgent string, logger *zap.Logger) *CollyFetcher {
	base := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(userAgent),
	)
	base.AllowURLRevisit = true // dedup is owned by the engine's visited set
	base.WithTransport(client.HTTP.Transport)
	base.SetRequestTimeout(client.HTTP.Timeout)
	return &CollyFetcher{base: base, logger: logger}
}

type fetchResult struct {
	page Page
	err  error
}

// Fetch performs a GET against rawURL and returns the resulting Page.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	collector := f.base.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			for k, v := range *r.Headers {
				cp := make([]string, len(v))
				copy(cp, v)
				headers[k] = cp
			}
		}
		send(fetchResult{page: Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
		}})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("colly: unknown fetch error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		send(fetchResult{page: Page{URL: rawURL, StatusCode: status}, err: err})
	})

	visitErr := collector.Visit(rawURL)
	collector.Wait()

	select {
	case res := <-resultCh:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, ctxErr
		}
		return res.page, res.err
	default:
		if visitErr != nil {
			return Page{}, visitErr
		}
		return Page{}, errors.New("colly: fetch produced no result")
	}
}
