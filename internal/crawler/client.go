package crawler

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// ClientConfig captures the knobs the HTTP Client Factory (C1) needs to
// build a scoped client for one crawl task.
type ClientConfig struct {
	UserAgent      string
	AcceptLanguage string
	RequestTimeout time.Duration
	MaxRedirects   int
	MaxIdlePerHost int
	RetryAttempts  int
}

// DefaultClientConfig returns the browser-like defaults required by §4.1.
func DefaultClientConfig(userAgent string) ClientConfig {
	return ClientConfig{
		UserAgent:      userAgent,
		AcceptLanguage: "en, el-GR;q=0.9",
		RequestTimeout: 15 * time.Second,
		MaxRedirects:   10,
		MaxIdlePerHost: 16,
		RetryAttempts:  3,
	}
}

// ScopedClient is the HTTPClient(scoped) from §3: an *http.Client bound to a
// base origin plus a Release func that must run on every exit path,
// including panic and cancellation, per the scoped-acquisition idiom.
type ScopedClient struct {
	HTTP    *http.Client
	Release func()

	headers *headerTransport
}

// SetProtocol records whether the pre-crawl HEAD probe negotiated HTTP/2, so
// every request issued through this client afterward omits the
// HTTP/1.1-only Keep-Alive/Connection headers per §4.3/§8. Request.ProtoMajor
// is not usable for this — net/http documents it as ignored on outgoing
// client requests, since the wrapped *http.Transport decides the actual
// wire protocol after headerTransport has already run.
func (c *ScopedClient) SetProtocol(isHTTP2 bool) {
	c.headers.stripConnectionHeaders.Store(isHTTP2)
}

// WithClient constructs a scoped HTTP client from cfg and returns it
// alongside its release function. Callers MUST defer Release() immediately.
// Construction wires: standard browser-like headers via a RoundTripper,
// automatic redirect following up to MaxRedirects, and a retrying transport
// enabling HTTP/2.
func WithClient(cfg ClientConfig) *ScopedClient {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   cfg.MaxIdlePerHost,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	}

	retrying := &retryingTransport{
		next:   transport,
		policy: NewExponentialRetryPolicy(),
	}

	headered := &headerTransport{
		next:           retrying,
		userAgent:      cfg.UserAgent,
		acceptLanguage: cfg.AcceptLanguage,
	}

	client := &http.Client{
		Transport: headered,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > cfg.MaxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &ScopedClient{
		HTTP: client,
		Release: func() {
			transport.CloseIdleConnections()
		},
		headers: headered,
	}
}

// headerTransport injects the standard browser-like request headers
// required by §4.1 ahead of every round trip.
type headerTransport struct {
	next           http.RoundTripper
	userAgent      string
	acceptLanguage string

	// stripConnectionHeaders is set via ScopedClient.SetProtocol once the
	// pre-crawl HEAD probe has determined the negotiated protocol; it starts
	// false so the earliest requests (the HEAD probe itself) keep them.
	stripConnectionHeaders atomic.Bool
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "text/html,application/json,application/xml;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Accept-Language", t.acceptLanguage)
	if t.stripConnectionHeaders.Load() {
		req.Header.Del("Keep-Alive")
		req.Header.Del("Connection")
	}
	return t.next.RoundTrip(req)
}

// retryingTransport retries transient network errors up to the configured
// attempt count, per §7 error kind 1. It wraps the given transport rather
// than replacing it, following the exponential backoff already grounded in
// ExponentialRetryPolicy.
type retryingTransport struct {
	next   http.RoundTripper
	policy *ExponentialRetryPolicy
}

func (t *retryingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := t.next.RoundTrip(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !t.policy.ShouldRetry(err, attempt) {
			return nil, lastErr
		}
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(t.policy.Backoff(attempt)):
		}
	}
}

// DetectCharset sniffs the response body's character encoding when the
// server omitted one, per §4.1's "default content encoding detected from
// the response body" requirement. It mirrors the original crawler's use of
// a statistical charset detector rather than assuming UTF-8.
func DetectCharset(body []byte) string {
	if len(body) == 0 {
		return "utf-8"
	}
	det := chardet.NewTextDetector()
	result, err := det.DetectBest(body)
	if err != nil || result == nil {
		return "utf-8"
	}
	return result.Charset
}

// decodeToUTF8 transcodes body to UTF-8 when contentType doesn't declare a
// charset, using DetectCharset the way the original crawler's httpx
// default_encoding callback used chardet.detect — as the fallback the HTTP
// client reaches for only once the server left the encoding unstated.
// Bodies that already declare, or are detected as, UTF-8/ASCII pass through
// untouched.
func decodeToUTF8(body []byte, contentType string) []byte {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if _, ok := params["charset"]; ok {
			return body
		}
	}
	label := DetectCharset(body)
	if strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "us-ascii") || strings.EqualFold(label, "ascii") {
		return body
	}
	r, err := charset.NewReaderLabel(label, bytes.NewReader(body))
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decoded
}

// headRequest issues the pre_crawl_setup HEAD probe (§4.3) and reports the
// negotiated protocol so the caller can decide whether to strip
// connection-management headers on subsequent GETs.
func headRequest(ctx context.Context, client *http.Client, rawURL string) (status int, isHTTP2 bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.ProtoMajor >= 2, nil
}
