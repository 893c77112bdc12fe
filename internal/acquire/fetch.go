package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"readability-backend/internal/shared/telemetry"
)

const (
	DefaultUserAgent    = "ContentStrategyPortal/1.0 AIReadabilityChecker"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 5
	MaxBodyBytes        = 10 << 20
	minContentChars     = 50
)

var (
	errBlockedAddress   = errors.New("blocked: private or local address")
	errTooManyRedirects = errors.New("too many redirects")
)

// Response is a fetched page.
type Response struct {
	HTML       string            `json:"html"`
	FinalURL   string            `json:"finalUrl"`
	Headers    map[string]string `json:"headers"`
	StatusCode int               `json:"statusCode"`
	FetchedAt  time.Time         `json:"fetchedAt"`
}

// Options configures a Fetcher. Zero values use the package defaults.
type Options struct {
	Timeout       time.Duration
	MaxRedirects  int
	RatePerMinute int
	UserAgent     string
	MaxBodyBytes  int64
}

// Fetcher retrieves pages with SSRF guards on the URL, on every redirect
// target and on every dialled address.
type Fetcher struct {
	client       *http.Client
	limiter      *rate.Limiter
	timeout      time.Duration
	maxRedirects int
	maxBytes     int64
	userAgent    string
	allowLocal   bool
}

// NewFetcher constructs a Fetcher.
func NewFetcher(opts Options) *Fetcher {
	f := &Fetcher{
		timeout:      opts.Timeout,
		maxRedirects: opts.MaxRedirects,
		maxBytes:     opts.MaxBodyBytes,
		userAgent:    opts.UserAgent,
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.maxRedirects <= 0 {
		f.maxRedirects = DefaultMaxRedirects
	}
	if f.maxBytes <= 0 {
		f.maxBytes = MaxBodyBytes
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if opts.RatePerMinute > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(float64(opts.RatePerMinute)/60), 5)
	}

	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			if f.allowLocal {
				return nil
			}
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if IsBlockedIP(net.ParseIP(host)) {
				return errBlockedAddress
			}
			return nil
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.Proxy = nil

	f.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > f.maxRedirects {
				return errTooManyRedirects
			}
			if f.allowLocal {
				return nil
			}
			if err := checkParsed(req.URL); err != nil {
				return fmt.Errorf("%w: redirect to %s: %v", errBlockedAddress, req.URL.Host, err)
			}
			return nil
		},
	}
	return f
}

// Fetch downloads rawURL. A cancelled ctx is returned as ctx.Err() so the
// caller can tell cancellation apart from fetch failures.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Response, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Response{}, &FetchError{Kind: FetchBlocked, URL: rawURL, Err: err}
	}
	if !f.allowLocal {
		if err := checkParsed(u); err != nil {
			return Response{}, &FetchError{Kind: FetchBlocked, URL: rawURL, Err: err}
		}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return Response{}, ctx.Err()
			}
			return Response{}, &FetchError{Kind: FetchRateLimited, URL: rawURL, Err: err}
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{}, &FetchError{Kind: FetchNetwork, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		return Response{}, classify(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, statusError(rawURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !htmlContentType(ct) {
		return Response{}, &FetchError{Kind: FetchContentType, URL: rawURL, Status: resp.StatusCode,
			Err: fmt.Errorf("unsupported content type %q, expected an HTML page", ct)}
	}
	if resp.ContentLength > f.maxBytes {
		return Response{}, tooLarge(rawURL, f.maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		return Response{}, classify(rawURL, err)
	}
	if int64(len(body)) > f.maxBytes {
		return Response{}, tooLarge(rawURL, f.maxBytes)
	}
	html := string(body)
	if len(strings.TrimSpace(html)) < minContentChars {
		return Response{}, &FetchError{Kind: FetchEmpty, URL: rawURL, Status: resp.StatusCode}
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}
	out := Response{
		HTML:       html,
		FinalURL:   resp.Request.URL.String(),
		Headers:    headers,
		StatusCode: resp.StatusCode,
		FetchedAt:  time.Now().UTC(),
	}
	telemetry.Info("fetch.done", map[string]any{
		"url":        rawURL,
		"final_url":  out.FinalURL,
		"status":     out.StatusCode,
		"bytes":      len(body),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return out, nil
}

func htmlContentType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func tooLarge(rawURL string, limit int64) *FetchError {
	return &FetchError{Kind: FetchTooLarge, URL: rawURL,
		Err: fmt.Errorf("response exceeds the %dMB limit", limit>>20)}
}

func classify(rawURL string, err error) *FetchError {
	var netErr net.Error
	switch {
	case errors.Is(err, errBlockedAddress):
		return &FetchError{Kind: FetchBlocked, URL: rawURL, Err: err}
	case errors.Is(err, errTooManyRedirects):
		return &FetchError{Kind: FetchTooManyRedirects, URL: rawURL, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: FetchTimeout, URL: rawURL, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &FetchError{Kind: FetchTimeout, URL: rawURL, Err: err}
	}
	return &FetchError{Kind: FetchNetwork, URL: rawURL, Err: fmt.Errorf("could not connect to %q: %w", rawURL, err)}
}
