package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// fakePage is one entry in a fakeFetcher's fixture site.
type fakePage struct {
	status      int
	contentType string
	body        string
	finalURL    string // defaults to the requested URL if empty
}

// fakeFetcher serves a fixed, in-memory site so engine tests exercise the
// traversal algorithm without going over the network. The engine fetches
// concurrently up to a task's RequestLimit, so fetched is guarded by a
// mutex rather than assumed single-goroutine access.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]fakePage
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (Page, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, rawURL)
	f.mu.Unlock()

	p, ok := f.pages[rawURL]
	if !ok {
		return Page{}, fmt.Errorf("fakeFetcher: no fixture for %s", rawURL)
	}
	final := p.finalURL
	if final == "" {
		final = rawURL
	}
	return Page{
		URL:        rawURL,
		FinalURL:   final,
		StatusCode: p.status,
		Headers:    http.Header{"Content-Type": []string{p.contentType}},
		Body:       []byte(p.body),
	}, nil
}

func link(href string) string {
	return fmt.Sprintf(`<a href="%s">link</a>`, href)
}

func newTestEngine(fetcher Fetcher, robots RobotsPolicy) *Engine {
	if robots == nil {
		robots = AllowAll()
	}
	return NewEngine(fetcher, robots, "test-agent/1.0", zap.NewNop())
}

// TestTrivialSiteYieldsSingleNodeNoEdges is scenario 1: a page with no
// links produces a graph with exactly one node and no edges.
func TestTrivialSiteYieldsSingleNodeNoEdges(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.test/": {status: 200, contentType: "text/html", body: "<html><body>no links here</body></html>"},
	}}
	e := newTestEngine(fetcher, nil)

	g, err := e.BuildGraph(context.Background(), Task{URL: "https://example.test/", CrawlDepth: 5, RequestLimit: 4})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.NodeCount() != 1 || g.EdgeCount() != 0 {
		t.Fatalf("expected 1 node 0 edges, got nodes=%d edges=%d", g.NodeCount(), g.EdgeCount())
	}
	if !g.HasNode("https://example.test/") {
		t.Fatal("expected the start url to be the sole node")
	}
}

// TestTwoPageLoopProducesOneUndirectedEdge is scenario 2: /a <-> /b at
// depth=5 should produce two nodes and exactly one edge (no parallel
// edge for the back-link).
func TestTwoPageLoopProducesOneUndirectedEdge(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.test/a": {status: 200, contentType: "text/html", body: link("/b")},
		"https://example.test/b": {status: 200, contentType: "text/html", body: link("/a")},
	}}
	e := newTestEngine(fetcher, nil)

	g, err := e.BuildGraph(context.Background(), Task{URL: "https://example.test/a", CrawlDepth: 5, RequestLimit: 4})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Fatalf("expected exactly 1 undirected edge (no parallel back-edge), got %d", g.EdgeCount())
	}
}

// TestExternalLinkIsFiltered is scenario 3: an external link is never
// fetched and never becomes an edge.
func TestExternalLinkIsFiltered(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.test/a": {status: 200, contentType: "text/html",
			body: link("https://other.test/x") + link("/b")},
		"https://example.test/b": {status: 200, contentType: "text/html", body: ""},
	}}
	e := newTestEngine(fetcher, nil)

	g, err := e.BuildGraph(context.Background(), Task{URL: "https://example.test/a", CrawlDepth: 5, RequestLimit: 4})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.HasNode("https://other.test/x") {
		t.Fatal("expected external link to never appear as a node")
	}
	for _, u := range fetcher.fetched {
		if strings.Contains(u, "other.test") {
			t.Fatalf("expected other.test to never be fetched, but got %q", u)
		}
	}
	if !g.HasNode("https://example.test/b") {
		t.Fatal("expected same-origin link to be followed")
	}
}

// TestDepthCapExcludesBeyondMaxDepth is scenario 4: a linear chain
// /0->/1->/2->/3->/4 with max_depth=2 must leave /3 and /4 completely
// absent, not merely unvisited.
func TestDepthCapExcludesBeyondMaxDepth(t *testing.T) {
	t.Parallel()
	pages := map[string]fakePage{}
	for i := 0; i < 4; i++ {
		pages[fmt.Sprintf("https://example.test/%d", i)] = fakePage{
			status: 200, contentType: "text/html", body: link(fmt.Sprintf("/%d", i+1)),
		}
	}
	pages["https://example.test/4"] = fakePage{status: 200, contentType: "text/html", body: ""}
	fetcher := &fakeFetcher{pages: pages}
	e := newTestEngine(fetcher, nil)

	g, err := e.BuildGraph(context.Background(), Task{URL: "https://example.test/0", CrawlDepth: 2, RequestLimit: 4})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	for i := 0; i <= 2; i++ {
		if !g.HasNode(fmt.Sprintf("https://example.test/%d", i)) {
			t.Fatalf("expected /%d to be a node", i)
		}
	}
	for i := 3; i <= 4; i++ {
		if g.HasNode(fmt.Sprintf("https://example.test/%d", i)) {
			t.Fatalf("expected /%d to be completely absent beyond max_depth", i)
		}
	}
	if g.EdgeCount() != 2 {
		t.Fatalf("expected exactly 2 edges (0-1, 1-2), got %d", g.EdgeCount())
	}
}

// disallowPrefixPolicy denies any URL whose path has the given prefix.
type disallowPrefixPolicy struct{ prefix string }

func (d disallowPrefixPolicy) Allowed(_ context.Context, rawURL string) bool {
	return !strings.Contains(rawURL, d.prefix)
}

// TestRobotsDisallowedURLIsLeafNode is scenario 5: a disallowed URL is
// still fetched once and appears as a node, but contributes no outbound
// edges (its links are never extracted).
func TestRobotsDisallowedURLIsLeafNode(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.test/a":       {status: 200, contentType: "text/html", body: link("/admin/x")},
		"https://example.test/admin/x": {status: 200, contentType: "text/html", body: link("/should-not-appear")},
	}}
	e := newTestEngine(fetcher, disallowPrefixPolicy{prefix: "/admin"})

	g, err := e.BuildGraph(context.Background(), Task{URL: "https://example.test/a", CrawlDepth: 5, RequestLimit: 4})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if !g.HasNode("https://example.test/admin/x") {
		t.Fatal("expected the disallowed url to still appear as a node (it was fetched once)")
	}
	if g.HasNode("https://example.test/should-not-appear") {
		t.Fatal("expected no links to be extracted from a robots-disallowed page")
	}
}

// TestMaxDepthZeroYieldsOnlyStartNode is the §8 boundary: max_depth=0
// produces exactly one node and zero edges, even when the page has links.
func TestMaxDepthZeroYieldsOnlyStartNode(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.test/": {status: 200, contentType: "text/html", body: link("/a")},
	}}
	e := newTestEngine(fetcher, nil)

	g, err := e.BuildGraph(context.Background(), Task{URL: "https://example.test/", CrawlDepth: 0, RequestLimit: 4})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.NodeCount() != 1 || g.EdgeCount() != 0 {
		t.Fatalf("expected exactly 1 node 0 edges at max_depth=0, got nodes=%d edges=%d", g.NodeCount(), g.EdgeCount())
	}
}

// TestExcludedURLRemainsLeafNode: a URL with an excluded suffix is added
// as a node but never fetched, so it contributes no outbound edges.
func TestExcludedURLRemainsLeafNode(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.test/a": {status: 200, contentType: "text/html", body: link("/doc.pdf")},
	}}
	e := newTestEngine(fetcher, nil)

	g, err := e.BuildGraph(context.Background(), Task{URL: "https://example.test/a", CrawlDepth: 5, RequestLimit: 4})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if !g.HasNode("https://example.test/doc.pdf") {
		t.Fatal("expected excluded url to still be added as a node")
	}
	for _, u := range fetcher.fetched {
		if strings.HasSuffix(u, ".pdf") {
			t.Fatal("expected excluded url to never be fetched")
		}
	}
}

// TestNonHTMLResponseIsNotParsedForLinks ensures a non-HTML content type
// prunes the subtree without attempting link extraction.
func TestNonHTMLResponseIsNotParsedForLinks(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.test/a": {status: 200, contentType: "application/json", body: `{"href":"/b"}`},
	}}
	e := newTestEngine(fetcher, nil)

	g, err := e.BuildGraph(context.Background(), Task{URL: "https://example.test/a", CrawlDepth: 5, RequestLimit: 4})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.NodeCount() != 1 {
		t.Fatalf("expected only the start node, got %d", g.NodeCount())
	}
}

// TestFetchErrorPrunesSubtreeWithoutFailingTask: an unfetchable URL is
// dropped silently; the rest of the task continues.
func TestFetchErrorPrunesSubtreeWithoutFailingTask(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.test/a": {status: 200, contentType: "text/html", body: link("/missing") + link("/b")},
		"https://example.test/b": {status: 200, contentType: "text/html", body: ""},
	}}
	e := newTestEngine(fetcher, nil)

	g, err := e.BuildGraph(context.Background(), Task{URL: "https://example.test/a", CrawlDepth: 5, RequestLimit: 4})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if !g.HasNode("https://example.test/missing") {
		t.Fatal("expected the unfetchable url to still be added as a node before the fetch was attempted")
	}
	if !g.HasNode("https://example.test/b") {
		t.Fatal("expected the sibling url to still be crawled despite the missing url's fetch error")
	}
}
