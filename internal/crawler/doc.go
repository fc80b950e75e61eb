// Package crawler implements the single-domain crawl engine: the scoped HTTP
// client factory, robots enforcement, frontier traversal, and link extraction
// that together turn a start URL into an in-memory link graph.
package crawler
