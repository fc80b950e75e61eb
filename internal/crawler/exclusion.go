package crawler

import (
	"net/url"
	"strings"
)

// excludedSuffixes lists path extensions that are added as graph nodes but
// never fetched, per the traversal algorithm's exclusion step. Grounded in
// the original crawler's literal suffix list.
var excludedSuffixes = []string{".pdf", ".xml", ".jpg", ".png"}

// IsExcluded reports whether rawURL's path matches the exclusion suffix
// list. The match is on the URL's path only, not the raw URL string,
// matching check_against_exclusion_list in the original crawler: a
// cache-busted asset like "/banner.jpg?v=2" is still excluded even though
// the full URL string doesn't end in ".jpg".
func IsExcluded(rawURL string) bool {
	path := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		path = parsed.Path
	}
	lower := strings.ToLower(path)
	for _, suffix := range excludedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// IsBlockedPath rejects link targets that route through Cloudflare's
// cdn-cgi internal endpoints (e.g. email obfuscation, rocket-loader), which
// are never meaningful graph edges.
func IsBlockedPath(rawURL string) bool {
	return strings.Contains(rawURL, "cdn-cgi")
}
