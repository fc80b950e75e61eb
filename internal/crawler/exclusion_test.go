package crawler

import "testing"

func TestIsExcludedMatchesSuffixCaseInsensitive(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"https://example.com/report.PDF": true,
		"https://example.com/sitemap.xml": true,
		"https://example.com/photo.jpg":  true,
		"https://example.com/logo.png":   true,
		"https://example.com/index.html": false,
	}
	for url, want := range cases {
		if got := IsExcluded(url); got != want {
			t.Errorf("IsExcluded(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestIsExcludedMatchesSuffixIgnoringQueryString(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"https://example.com/banner.jpg?v=2":         true,
		"https://example.com/report.pdf?download=1":  true,
		"https://example.com/page?ref=logo.png":       false,
	}
	for url, want := range cases {
		if got := IsExcluded(url); got != want {
			t.Errorf("IsExcluded(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestIsBlockedPathMatchesCdnCgi(t *testing.T) {
	t.Parallel()
	if !IsBlockedPath("https://example.com/cdn-cgi/l/email-protection") {
		t.Fatal("expected cdn-cgi path to be blocked")
	}
	if IsBlockedPath("https://example.com/normal/path") {
		t.Fatal("expected normal path to be allowed")
	}
}
