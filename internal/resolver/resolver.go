package resolver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pluginlinks/internal/model"
)

// Source lists package sources and the plugin packages they offer.
// *graphql.Client implements it.
type Source interface {
	PluginPackageSources(ctx context.Context) ([]string, error)
	AvailablePlugins(ctx context.Context, source string) ([]model.Package, error)
}

// State is the lifecycle state of a Resolver's shared result.
type State int

const (
	// StateUnstarted means no fetch has been started yet.
	StateUnstarted State = iota

	// StatePending means a fetch is in flight.
	StatePending

	// StateResolved means the map is available and will be reused.
	StateResolved

	// StateFailed means the last fetch failed. The next call starts a
	// new fetch as if the resolver were unstarted.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// call is one in-flight fetch shared by every waiter.
type call struct {
	done chan struct{}
	urls model.PackageURLMap
	err  error
}

// Resolver memoizes the PackageURLMap built from a Source.
type Resolver struct {
	source      Source
	logger      *slog.Logger
	timeout     time.Duration
	concurrency int

	mu      sync.Mutex
	state   State
	current *call
	urls    model.PackageURLMap
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithTimeout bounds one shared fetch. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithConcurrency limits how many sources are queried at once.
// Zero or less means no limit.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		r.concurrency = n
	}
}

// New creates a Resolver reading from source.
func New(source Source, opts ...Option) *Resolver {
	r := &Resolver{
		source:  source,
		timeout: 30 * time.Second,
		state:   StateUnstarted,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// State returns the current state of the shared result.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// PackageURLMap returns the shared package URL map, starting the fetch if
// needed. The returned map is shared between callers and must not be
// modified.
//
// The fetch is not tied to ctx: a caller that gives up returns ctx.Err()
// while the fetch continues for other waiters.
func (r *Resolver) PackageURLMap(ctx context.Context) (model.PackageURLMap, error) {
	r.mu.Lock()
	switch r.state {
	case StateResolved:
		urls := r.urls
		r.mu.Unlock()
		return urls, nil
	case StatePending:
		c := r.current
		r.mu.Unlock()
		return wait(ctx, c)
	default:
		c := &call{done: make(chan struct{})}
		r.current = c
		r.state = StatePending
		r.mu.Unlock()

		go r.run(context.WithoutCancel(ctx), c)
		return wait(ctx, c)
	}
}

func wait(ctx context.Context, c *call) (model.PackageURLMap, error) {
	select {
	case <-c.done:
		return c.urls, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) run(ctx context.Context, c *call) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	urls, err := r.build(ctx)

	r.mu.Lock()
	if err != nil {
		r.state = StateFailed
		r.urls = nil
		r.logger.Warn("package url resolution failed", "error", err)
	} else {
		r.state = StateResolved
		r.urls = urls
		r.logger.Debug("package url map resolved", "packages", len(urls))
	}
	r.current = nil
	c.urls, c.err = urls, err
	r.mu.Unlock()

	close(c.done)
}

// build queries every source and merges the results in source order.
// A failing source contributes no packages.
func (r *Resolver) build(ctx context.Context) (model.PackageURLMap, error) {
	sources, err := r.source.PluginPackageSources(ctx)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return make(model.PackageURLMap), nil
	}

	perSource := make([][]model.Package, len(sources))
	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, source := range sources {
		g.Go(func() error {
			pkgs, err := r.source.AvailablePlugins(ctx, source)
			if err != nil {
				r.logger.Debug("package source failed", "source", source, "error", err)
				return nil
			}
			perSource[i] = pkgs
			return nil
		})
	}
	_ = g.Wait()

	return model.MergePackages(perSource), nil
}
