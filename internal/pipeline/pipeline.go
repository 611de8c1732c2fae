package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/pluginlinks/internal/dom"
	"github.com/nao1215/pluginlinks/internal/enhance"
	"github.com/nao1215/pluginlinks/internal/model"
)

// Job is the state shared by the steps of one pass.
type Job struct {
	// Doc is the document being enhanced. Steps mutate it in place.
	Doc *dom.Document

	// Pass collects the outcome of the pass.
	Pass *model.Pass

	// Table is set by the locate step.
	Table *enhance.PluginTable
}

// NewJob creates a job for doc with an empty pass.
func NewJob(doc *dom.Document) *Job {
	pageURL := ""
	if u := doc.URL(); u != nil {
		pageURL = u.String()
	}
	return &Job{
		Doc:  doc,
		Pass: model.NewPass(pageURL),
	}
}

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Do executes the step. Returning an error fails the pass; shape
	// mismatches stop the pass through job.Pass.Stop instead.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing steps after one fails.
// The failure is still recorded in the pass.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order until one stops the pass, one fails or
// ctx is cancelled.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			job.Pass.Error = ctx.Err().Error()
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"page", job.Pass.PageURL,
		)

		err := step.Do(ctx, job)
		job.Pass.Steps = append(job.Pass.Steps, step.Name())
		if err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"page", job.Pass.PageURL,
				"error", err,
			)
			job.Pass.Error = err.Error()
			if !p.continueOnError {
				return err
			}
			continue
		}

		if job.Pass.Stopped() {
			p.logger.Debug("pass stopped",
				"step", step.Name(),
				"page", job.Pass.PageURL,
				"reason", job.Pass.Reason,
			)
			return nil
		}
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
