package crawler

import (
	"fmt"
	"net/url"
)

// StripFragment returns the absolute form of rawURL with its fragment
// removed. Query strings, casing, and trailing-slash variants are left
// untouched: per the traversal design, trailing-slash variants and
// differently-cased hosts are deliberately treated as distinct URLs rather
// than canonicalized, and www./bare-host pairs are not folded together (see
// DESIGN.md's Open Question decisions).
func StripFragment(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Fragment = ""
	return u.String(), nil
}

// ResolveLink resolves an href found on base into an absolute URL with its
// fragment stripped. A relative href with no fragment of its own inherits
// none from the base page.
func ResolveLink(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String(), nil
}

// SameOrigin reports whether two URLs share the same network location
// (scheme+host+port, i.e. net/url's Host after including the scheme). This
// is exact string equality against url.URL.Host, matching the source's
// urlparse().netloc comparison: "www." and the bare host are distinct.
func SameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Scheme == b.Scheme && a.Host == b.Host
}

// NetLoc returns the network-location component (host[:port]) used to key
// persisted graphs and GraphInfo cache entries.
func NetLoc(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Host
}
