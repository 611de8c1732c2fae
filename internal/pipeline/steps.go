package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/pluginlinks/internal/enhance"
	"github.com/nao1215/pluginlinks/internal/model"
	"github.com/nao1215/pluginlinks/internal/page"
)

// MatchStep stops the pass unless the document URL looks like the plugins
// settings screen.
type MatchStep struct {
	force bool
}

// NewMatchStep creates the page guard. With force set every document is
// treated as a plugins page.
func NewMatchStep(force bool) *MatchStep {
	return &MatchStep{force: force}
}

// Name returns the step name.
func (s *MatchStep) Name() string {
	return "match"
}

// Do executes the page guard.
func (s *MatchStep) Do(_ context.Context, job *Job) error {
	if s.force || page.IsPluginsPage(job.Doc.URL()) {
		return nil
	}
	job.Pass.Stop(model.ReasonNotPluginsPage)
	return nil
}

// LocateStep finds the plugin table and stores it in the job.
type LocateStep struct{}

// NewLocateStep creates the table locator step.
func NewLocateStep() *LocateStep {
	return &LocateStep{}
}

// Name returns the step name.
func (s *LocateStep) Name() string {
	return "locate"
}

// Do executes the table locator.
func (s *LocateStep) Do(_ context.Context, job *Job) error {
	table, ok := enhance.LocateTable(job.Doc)
	if !ok {
		job.Pass.Stop(model.ReasonNoPluginTable)
		return nil
	}
	job.Table = table
	return nil
}

// LinkifyStep converts version labels using the URL column when the table
// has one, and the package URL map otherwise.
type LinkifyStep struct {
	mapper  enhance.URLMapper
	markers enhance.Markers
	logger  *slog.Logger
}

// LinkifyStepOption configures a LinkifyStep.
type LinkifyStepOption func(*LinkifyStep)

// WithMarkers sets the marker selectors for package-marker tables.
func WithMarkers(m enhance.Markers) LinkifyStepOption {
	return func(s *LinkifyStep) {
		s.markers = m.WithDefaults()
	}
}

// WithLinkifyLogger sets the step logger.
func WithLinkifyLogger(logger *slog.Logger) LinkifyStepOption {
	return func(s *LinkifyStep) {
		s.logger = logger
	}
}

// NewLinkifyStep creates the linkify step. mapper may be nil when only
// URL-column tables are expected.
func NewLinkifyStep(mapper enhance.URLMapper, opts ...LinkifyStepOption) *LinkifyStep {
	s := &LinkifyStep{
		mapper:  mapper,
		markers: enhance.DefaultMarkers(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *LinkifyStep) Name() string {
	return "linkify"
}

// Do executes the linkify step. Failures to resolve package URLs skip the
// enhancement and are recorded in the pass rather than returned.
func (s *LinkifyStep) Do(ctx context.Context, job *Job) error {
	if job.Table == nil {
		job.Pass.Stop(model.ReasonNoPluginTable)
		return nil
	}

	if job.Table.HasURLColumn() {
		enhance.LinkifyURLColumn(job.Doc, job.Table, job.Pass)
		return nil
	}

	if err := enhance.LinkifyPackageMarkers(ctx, job.Table, s.markers, s.mapper, job.Pass); err != nil {
		s.logger.Debug("skipping package table enhancement",
			"page", job.Pass.PageURL,
			"error", err,
		)
		job.Pass.Error = err.Error()
		job.Pass.Stop(model.ReasonResolverFailed)
	}
	return nil
}

// DefaultConfig holds the settings for DefaultPipeline.
type DefaultConfig struct {
	// Force skips the page URL guard.
	Force bool

	// Markers are the package-marker selectors.
	Markers enhance.Markers

	// Logger is shared by the pipeline and its steps.
	Logger *slog.Logger
}

// DefaultOption configures DefaultPipeline.
type DefaultOption func(*DefaultConfig)

// WithForce skips the page URL guard.
func WithForce(force bool) DefaultOption {
	return func(c *DefaultConfig) {
		c.Force = force
	}
}

// WithPipelineMarkers sets the package-marker selectors.
func WithPipelineMarkers(m enhance.Markers) DefaultOption {
	return func(c *DefaultConfig) {
		c.Markers = m
	}
}

// WithPipelineLogger sets the logger for the pipeline and its steps.
func WithPipelineLogger(logger *slog.Logger) DefaultOption {
	return func(c *DefaultConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline builds the match → locate → linkify pipeline.
func DefaultPipeline(mapper enhance.URLMapper, opts ...DefaultOption) *Pipeline {
	cfg := &DefaultConfig{
		Markers: enhance.DefaultMarkers(),
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	p := New(WithLogger(cfg.Logger))
	p.AddSteps(
		NewMatchStep(cfg.Force),
		NewLocateStep(),
		NewLinkifyStep(mapper,
			WithMarkers(cfg.Markers),
			WithLinkifyLogger(cfg.Logger),
		),
	)
	return p
}
