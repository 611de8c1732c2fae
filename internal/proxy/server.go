package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nao1215/pluginlinks/internal/dom"
	"github.com/nao1215/pluginlinks/internal/enhance"
	"github.com/nao1215/pluginlinks/internal/graphql"
	"github.com/nao1215/pluginlinks/internal/model"
	"github.com/nao1215/pluginlinks/internal/page"
	"github.com/nao1215/pluginlinks/internal/pipeline"
	"github.com/nao1215/pluginlinks/internal/resolver"
)

// HealthPath answers liveness probes without touching the upstream.
const HealthPath = "/-/healthz"

// Defaults for Server options.
const (
	DefaultSessionTTL       = 30 * time.Minute
	DefaultSessionCacheSize = 256
	DefaultTimeout          = 30 * time.Second
	DefaultMaxBodySize      = 5 * 1024 * 1024
	shutdownTimeout         = 5 * time.Second
)

// ErrInvalidUpstream is returned by New when the upstream URL is unusable.
var ErrInvalidUpstream = errors.New("invalid upstream URL")

// Recorder stores the outcome of enhancement passes.
type Recorder interface {
	Record(ctx context.Context, pass *model.Pass) error
}

// Server is a reverse proxy that enhances plugin pages.
type Server struct {
	upstream    *url.URL
	endpoint    string
	graphqlPath string
	transport   http.RoundTripper
	logger      *slog.Logger
	recorder    Recorder
	markers     enhance.Markers
	force       bool
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
	headers     map[string]string
	concurrency int
	sessionTTL  time.Duration
	sessionSize int

	registry *resolver.Registry
	proxy    *httputil.ReverseProxy
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRecorder stores every enhancement pass on a plugins page.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithTransport sets the round tripper used for upstream and GraphQL requests.
func WithTransport(t http.RoundTripper) Option {
	return func(s *Server) {
		s.transport = t
	}
}

// WithGraphQLPath sets the endpoint path on the upstream.
func WithGraphQLPath(path string) Option {
	return func(s *Server) {
		s.graphqlPath = path
	}
}

// WithMarkers sets the package-marker selectors.
func WithMarkers(m enhance.Markers) Option {
	return func(s *Server) {
		s.markers = m.WithDefaults()
	}
}

// WithForce enhances every HTML page, not only plugins pages.
func WithForce(force bool) Option {
	return func(s *Server) {
		s.force = force
	}
}

// WithTimeout bounds each package URL resolution.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxBodySize sets the largest HTML body that is rewritten. Larger
// bodies are passed through unchanged.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// WithUserAgent sets the User-Agent for GraphQL requests.
func WithUserAgent(ua string) Option {
	return func(s *Server) {
		s.userAgent = ua
	}
}

// WithHeaders adds headers to GraphQL requests.
func WithHeaders(headers map[string]string) Option {
	return func(s *Server) {
		s.headers = headers
	}
}

// WithSourceConcurrency limits parallel per-source queries. Zero is unlimited.
func WithSourceConcurrency(n int) Option {
	return func(s *Server) {
		s.concurrency = n
	}
}

// WithSessions sets how many sessions are cached and how long each lives.
func WithSessions(size int, ttl time.Duration) Option {
	return func(s *Server) {
		if size > 0 {
			s.sessionSize = size
		}
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// New creates a Server in front of upstream.
func New(upstream string, opts ...Option) (*Server, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUpstream, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUpstream, upstream)
	}

	s := &Server{
		upstream:    u,
		graphqlPath: graphql.DefaultPath,
		transport:   http.DefaultTransport,
		logger:      slog.Default(),
		markers:     enhance.DefaultMarkers(),
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		sessionTTL:  DefaultSessionTTL,
		sessionSize: DefaultSessionCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.endpoint, err = graphql.EndpointFor(u.String(), s.graphqlPath)
	if err != nil {
		return nil, err
	}

	s.registry = resolver.NewRegistry(s.sessionSize, s.sessionTTL, s.newResolver)
	s.proxy = &httputil.ReverseProxy{
		Rewrite:        s.rewrite,
		Transport:      s.transport,
		ModifyResponse: s.modifyResponse,
		ErrorHandler:   s.handleError,
	}

	return s, nil
}

// Endpoint returns the GraphQL endpoint used for package lookups.
func (s *Server) Endpoint() string {
	return s.endpoint
}

// Sessions returns the number of cached client sessions.
func (s *Server) Sessions() int {
	return s.registry.Len()
}

// Handler returns the HTTP handler serving the proxy.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/*", s.proxy)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("proxy listening", "addr", addr, "upstream", s.upstream.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("proxy server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("proxy shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) newResolver(cookie string) *resolver.Resolver {
	client := graphql.NewClient(s.endpoint,
		graphql.WithHTTPClient(&http.Client{Transport: s.transport, Timeout: s.timeout}),
		graphql.WithCookie(cookie),
		graphql.WithHeaders(s.headers),
		graphql.WithUserAgent(s.userAgent),
	)
	return resolver.New(client,
		resolver.WithLogger(s.logger),
		resolver.WithTimeout(s.timeout),
		resolver.WithConcurrency(s.concurrency),
	)
}

func (s *Server) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(s.upstream)
	pr.SetXForwarded()
	pr.Out.Header.Del("Accept-Encoding")
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("upstream request failed", "path", r.URL.Path, "error", err)
	w.WriteHeader(http.StatusBadGateway)
}

// shouldEnhance reports whether resp is an uncompressed HTML plugins page.
func (s *Server) shouldEnhance(resp *http.Response) bool {
	if resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if resp.StatusCode != http.StatusOK {
		return false
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		return false
	}
	if !model.IsHTMLContentType(resp.Header.Get("Content-Type")) {
		return false
	}
	return s.force || page.IsPluginsPage(resp.Request.URL)
}

func (s *Server) modifyResponse(resp *http.Response) error {
	if !s.shouldEnhance(resp) {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize+1))
	if err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("failed to read upstream body: %w", err)
	}
	if int64(len(body)) > s.maxBodySize {
		s.logger.Debug("page too large to enhance", "path", resp.Request.URL.Path, "limit", s.maxBodySize)
		resp.Body = readCloser{
			Reader: io.MultiReader(bytes.NewReader(body), resp.Body),
			Closer: resp.Body,
		}
		return nil
	}
	_ = resp.Body.Close()

	out := s.enhance(resp.Request, body)
	resp.Body = io.NopCloser(bytes.NewReader(out))
	resp.ContentLength = int64(len(out))
	resp.Header.Set("Content-Length", strconv.Itoa(len(out)))
	if !bytes.Equal(out, body) {
		resp.Header.Del("ETag")
	}
	return nil
}

// enhance runs one pass over body and returns the new body, or body itself
// when nothing changed.
func (s *Server) enhance(req *http.Request, body []byte) []byte {
	ctx := req.Context()
	pageURL := req.URL.String()

	doc, err := dom.Parse(bytes.NewReader(body), pageURL)
	if err != nil {
		s.logger.Debug("failed to parse page", "page", pageURL, "error", err)
		return body
	}

	job := pipeline.NewJob(doc)
	p := pipeline.DefaultPipeline(s.registry.ForCookie(req.Header.Get("Cookie")),
		pipeline.WithForce(s.force),
		pipeline.WithPipelineMarkers(s.markers),
		pipeline.WithPipelineLogger(s.logger),
	)
	if err := p.Execute(ctx, job); err != nil {
		s.logger.Debug("enhancement pass aborted", "page", pageURL, "error", err)
		return body
	}

	s.record(ctx, job.Pass)

	if !job.Pass.Changed() {
		return body
	}

	rendered, err := doc.HTML()
	if err != nil {
		s.logger.Warn("failed to render enhanced page", "page", pageURL, "error", err)
		return body
	}

	s.logger.Debug("enhanced page",
		"page", pageURL,
		"shape", job.Pass.Shape,
		"linked", len(job.Pass.Linked),
	)
	return []byte(rendered)
}

func (s *Server) record(ctx context.Context, pass *model.Pass) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), pass); err != nil {
		s.logger.Warn("failed to record pass", "page", pass.PageURL, "error", err)
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}
