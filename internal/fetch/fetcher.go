package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/pluginlinks/internal/model"
)

// Sentinel errors returned by Fetch.
var (
	// ErrUnexpectedStatus is returned for non-2xx HTTP responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrNotHTML is returned when the response is not an HTML document.
	ErrNotHTML = errors.New("document is not HTML")

	// ErrUnsupportedScheme is returned for URLs that are neither http(s) nor file.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

// DefaultUserAgent identifies pluginlinks to the host application.
const DefaultUserAgent = "pluginlinks/1.0 (+https://github.com/nao1215/pluginlinks)"

// DefaultMaxBodySize caps response bodies.
const DefaultMaxBodySize int64 = 5 * 1024 * 1024

// Fetcher loads documents over HTTP or from disk.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	cookie      string
	headers     map[string]string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithCookie sets the Cookie header for HTTP requests.
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithHeaders adds extra HTTP request headers.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		headers:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsRemote reports whether target is an http(s) URL.
func IsRemote(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Fetch loads target and returns it as a page.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*model.Page, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters.
		return f.readFile(target)
	}
	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, target)
	case "file":
		return f.readFile(u.Path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, target string) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, err
	}

	page := &model.Page{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Headers:     resp.Header,
		Raw:         body,
	}
	if !page.IsHTML() {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, page.ContentType)
	}
	page.ComputeHash()
	return page, nil
}

func (f *Fetcher) readFile(path string) (*model.Page, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(abs) //nolint:gosec // path is chosen by the user
	if err != nil {
		return nil, err
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, f.maxBodySize))
	if err != nil {
		return nil, err
	}

	page := &model.Page{
		URL: (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
		Raw: body,
	}
	if ext := strings.ToLower(filepath.Ext(abs)); ext == ".html" || ext == ".htm" {
		page.ContentType = "text/html"
	}
	page.ComputeHash()
	return page, nil
}
