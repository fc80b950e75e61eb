package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mapmaker/graphcrawler/internal/graph"
	"go.uber.org/zap"
)

// Engine is the Crawler Engine (C3): it owns the traversal loop, the
// per-task visited set, and the graph being accumulated. One Engine
// instance is used for exactly one crawl task.
type Engine struct {
	fetcher   Fetcher
	robots    RobotsPolicy
	userAgent string
	logger    *zap.Logger
}

// NewEngine builds an Engine bound to the given fetcher and robots policy,
// both already scoped to this task's origin.
func NewEngine(fetcher Fetcher, robots RobotsPolicy, userAgent string, logger *zap.Logger) *Engine {
	return &Engine{fetcher: fetcher, robots: robots, userAgent: userAgent, logger: logger}
}

// PreCrawlSetup issues the HEAD probe named in §4.3 and reports whether the
// crawl should proceed. A non-2xx status aborts the task before any graph
// state exists (§7 error kind 2, §8 boundary "start URL returns non-2xx").
func PreCrawlSetup(ctx context.Context, client *http.Client, startURL string) (ok bool, isHTTP2 bool, err error) {
	status, http2, err := headRequest(ctx, client, startURL)
	if err != nil {
		return false, false, fmt.Errorf("pre-crawl HEAD failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return false, http2, fmt.Errorf("%w: status %d", ErrSetupFailed, status)
	}
	return true, http2, nil
}

// frontierItem is one pending traversal step: a discovered URL, the depth
// at which it was discovered, and the parent it was discovered from (empty
// for the seed). The parent edge is committed when the item is popped, not
// at discovery time: a link whose target lies beyond the depth bound adds
// neither node nor edge, and a link to a target that is already a node
// adds only the edge.
type frontierItem struct {
	url    string
	depth  int
	parent string
}

// BuildGraph runs the traversal algorithm described in §4.3 and returns the
// resulting graph. Per the Design Notes' option (a), the traversal loop
// stays on this single goroutine — it alone touches the graph, the visited
// set, and the worklist, so none of them need synchronization — while each
// URL that needs fetching is handed to a short-lived goroutine that reports
// its discovered links back over a channel. The semaphore inside crawlOne,
// sized by task.RequestLimit, is what actually bounds how many of those
// goroutines are fetching at once (§5: "the semaphore is per-task, not
// global"); spawning a goroutine only queues it behind that semaphore.
func (e *Engine) BuildGraph(ctx context.Context, task Task) (*graph.Graph, error) {
	start, err := url.Parse(task.URL)
	if err != nil {
		return nil, fmt.Errorf("engine: parse start url: %w", err)
	}

	g := graph.New()
	visited := &visitedSet{}
	sem := make(chan struct{}, max(1, task.RequestLimit))
	results := make(chan []frontierItem)

	// A LIFO worklist gives the "opportunistic first-found... eager DFS"
	// traversal named in §4.3 step 5; children are pushed in reverse so the
	// first-discovered link on a page is the first one explored.
	stack := []frontierItem{{url: task.URL, depth: 0}}
	pending := 0

	for len(stack) > 0 || pending > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err // cancellation propagates at the next suspension, per §5
		}

		if len(stack) == 0 {
			// Nothing left to commit synchronously; block for the next
			// in-flight fetch to report its discovered children.
			select {
			case children := <-results:
				pending--
				for i := len(children) - 1; i >= 0; i-- {
					stack = append(stack, children[i])
				}
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.parent != "" && g.HasNode(item.url) {
			g.AddEdge(item.parent, item.url) // known node: edge only, no refetch
			continue
		}
		if item.depth > task.CrawlDepth {
			continue // depth bound: neither node nor edge is committed
		}
		if !visited.MarkIfNew(item.url) {
			continue // no double-fetch
		}

		g.AddNode(item.url)
		if item.parent != "" {
			g.AddEdge(item.parent, item.url)
		}

		if IsExcluded(item.url) {
			continue // excluded URLs remain leaves; never fetched
		}

		pending++
		go func(item frontierItem) {
			children := e.crawlOne(ctx, start, item, sem)
			select {
			case results <- children:
			case <-ctx.Done():
			}
		}(item)
	}

	return g, nil
}

// crawlOne fetches item.url, checks robots (after the fetch, per the
// design's documented open question), and extracts same-origin link
// targets. It never mutates the graph directly; the caller commits nodes
// and edges when items are popped so the depth-bound invariant holds.
func (e *Engine) crawlOne(ctx context.Context, start *url.URL, item frontierItem, sem chan struct{}) []frontierItem {
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil
	}
	defer func() { <-sem }()

	page, err := e.fetcher.Fetch(ctx, item.url)
	if err != nil {
		e.logger.Debug("fetch failed; pruning subtree", zap.String("url", item.url), zap.Error(err))
		return nil
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 {
		return nil
	}
	if !strings.Contains(strings.ToLower(page.ContentType()), "text/html") {
		return nil
	}
	if e.robots != nil && !e.robots.Allowed(ctx, item.url) {
		return nil // link extraction suppressed; the request itself already happened
	}

	current, err := url.Parse(page.FinalURL)
	if err != nil {
		current = start
	}

	body := decodeToUTF8(page.Body, page.ContentType())
	return e.extractLinks(current, start, item.url, body, item.depth)
}

// extractLinks parses page HTML and returns same-origin, non-cdn-cgi link
// targets as new frontier items at depth+1, in document order. Resolution
// uses the page's final URL (post-redirect), but the committed edge's
// source is parentID — the identifier already added as a graph node — so
// the two never diverge even when the fetch followed a redirect chain.
func (e *Engine) extractLinks(current, start *url.URL, parentID string, body []byte, depth int) []frontierItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		e.logger.Debug("parse HTML failed; skipping link extraction", zap.Error(err))
		return nil
	}

	var out []frontierItem
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if IsBlockedPath(href) {
			return
		}
		resolved, err := ResolveLink(current, href)
		if err != nil {
			return
		}
		if IsBlockedPath(resolved) {
			return
		}
		target, err := url.Parse(resolved)
		if err != nil {
			return
		}
		if !SameOrigin(start, target) {
			return
		}
		out = append(out, frontierItem{url: resolved, depth: depth + 1, parent: parentID})
	})
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
