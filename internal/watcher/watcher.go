package watcher

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Mutation is one batch of node additions.
type Mutation struct {
	// Root is the document the nodes were added to.
	Root *html.Node

	// Added lists the added nodes.
	Added []*html.Node
}

// Relevant reports whether any added node is or contains a heading or table.
func (m Mutation) Relevant() bool {
	for _, n := range m.Added {
		if IsRelevant(n) {
			return true
		}
	}
	return false
}

// IsRelevant reports whether n is a h1 to h4 or table element, or has one
// among its descendants.
func IsRelevant(n *html.Node) bool {
	if n == nil {
		return false
	}
	if n.Type == html.ElementNode && isTrigger(n.DataAtom) {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsRelevant(c) {
			return true
		}
	}
	return false
}

func isTrigger(a atom.Atom) bool {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.Table:
		return true
	default:
		return false
	}
}

// Callback runs one enhancement pass for a relevant batch.
type Callback func(ctx context.Context, m Mutation)

// Watcher dispatches relevant mutation batches to a callback.
type Watcher struct {
	callback  Callback
	logger    *slog.Logger
	triggered atomic.Int64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New creates a Watcher calling cb for every relevant batch.
func New(cb Callback, opts ...Option) *Watcher {
	w := &Watcher{callback: cb}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Run observes mutations until ctx is done or the channel is closed.
// It returns ctx.Err() in the first case and nil in the second.
func (w *Watcher) Run(ctx context.Context, mutations <-chan Mutation) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-mutations:
			if !ok {
				return nil
			}
			if !m.Relevant() {
				w.logger.Debug("ignoring mutation batch", "added", len(m.Added))
				continue
			}
			w.triggered.Add(1)
			w.callback(ctx, m)
		}
	}
}

// Triggered returns how many batches have triggered the callback.
func (w *Watcher) Triggered() int64 {
	return w.triggered.Load()
}
