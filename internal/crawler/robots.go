package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsPolicy answers allowed(url) for a single crawl task's origin. Per
// §4.2, one policy exists per crawl task with no cross-task sharing: two
// concurrent tasks against the same origin each fetch and parse their own
// copy of robots.txt rather than reading a shared cache.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// allowAllPolicy is returned when robots enforcement is disabled or has not
// yet been parsed.
type allowAllPolicy struct{}

func (allowAllPolicy) Allowed(context.Context, string) bool { return true }

// AllowAll returns a policy that permits every URL, used when robots
// enforcement is disabled in configuration.
func AllowAll() RobotsPolicy { return allowAllPolicy{} }

// robotsPolicy is the enforcing implementation, holding at most one parsed
// robots.txt document for the task's single origin.
type robotsPolicy struct {
	userAgent string
	logger    *zap.Logger
	data      *robotstxt.RobotsData
}

// NewRobotsPolicy fetches origin's robots.txt and returns a policy scoped to
// this one crawl task. On any fetch or parse failure, or a non-200 status,
// the returned policy is permissive — matching the "empty/permissive if
// fetch fails" contract in §3.
func NewRobotsPolicy(ctx context.Context, client *http.Client, origin *url.URL, userAgent string, logger *zap.Logger) RobotsPolicy {
	ctx, cancel := context.WithTimeout(ctx, robotsFetchTimeout)
	defer cancel()

	robotsURL := *origin
	robotsURL.Path = path.Join("/", "robots.txt")
	robotsURL.RawQuery = ""
	robotsURL.Fragment = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		logger.Warn("build robots request failed; permitting all", zap.Error(err))
		return allowAllPolicy{}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("fetch robots.txt failed; permitting all", zap.String("origin", origin.String()), zap.Error(err))
		return allowAllPolicy{}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Debug("close robots response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		logger.Debug("robots.txt status not 200; permitting all", zap.String("origin", origin.String()), zap.Int("status", resp.StatusCode))
		return allowAllPolicy{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		logger.Warn("read robots.txt body failed; permitting all", zap.Error(err))
		return allowAllPolicy{}
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		logger.Warn("parse robots.txt failed; permitting all", zap.Error(err))
		return allowAllPolicy{}
	}
	return &robotsPolicy{userAgent: userAgent, logger: logger, data: data}
}

// Allowed implements RobotsPolicy for the "*" user-agent group.
func (r *robotsPolicy) Allowed(_ context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	group := r.data.FindGroup("*")
	if group == nil {
		return true
	}
	return group.Test(parsed.Path)
}

// robotsFetchTimeout bounds the once-per-crawl robots.txt fetch.
const robotsFetchTimeout = 10 * time.Second
