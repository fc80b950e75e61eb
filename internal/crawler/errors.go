package crawler

import "errors"

// Sentinel errors surfaced across the crawler package boundary. Callers use
// errors.Is against these to classify failures per the error-kind taxonomy;
// the underlying transport/parse detail stays in the wrapped chain for logs.
var (
	// ErrSetupFailed means pre_crawl_setup's HEAD request returned a non-2xx
	// status; the task aborts gracefully before any graph state is created.
	// A HEAD request that couldn't be issued at all (DNS, connection refused)
	// is a distinct, harder failure: its error is wrapped without
	// ErrSetupFailed so callers can tell "the start URL rejected us" apart
	// from "we couldn't reach it".
	ErrSetupFailed = errors.New("crawler: start URL setup failed")
)
