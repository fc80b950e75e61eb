package crawler

import (
	"net/http"
	"time"

	"github.com/mapmaker/graphcrawler/internal/graph"
)

// Task describes an admitted crawl request. It is immutable after admission;
// identity is the URL, normalized to its origin.
type Task struct {
	URL          string
	Compressor   graph.Compressor
	CrawlDepth   int
	RequestLimit int
	EnqueuedAt   time.Time
}

// Page is the result of fetching a single URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ContentType returns the response's declared content type, if any.
func (p Page) ContentType() string {
	return p.Headers.Get("Content-Type")
}

// Outcome classifies how a crawl task ended, for logging and events.
type Outcome string

// Supported task outcomes.
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeAborted   Outcome = "aborted"
	OutcomeFailed    Outcome = "failed"
)

// Result summarizes a finished crawl task for the queue and event bus.
type Result struct {
	Task      Task
	Host      string
	Outcome   Outcome
	NodeCount int
	EdgeCount int
	Reason    string
	Err       error
}
