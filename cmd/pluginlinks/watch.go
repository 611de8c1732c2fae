package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pluginlinks/internal/config"
	"github.com/nao1215/pluginlinks/internal/dom"
	"github.com/nao1215/pluginlinks/internal/enhance"
	"github.com/nao1215/pluginlinks/internal/model"
	"github.com/nao1215/pluginlinks/internal/pipeline"
	"github.com/nao1215/pluginlinks/internal/watcher"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Keep an HTML file enhanced while it changes",
		Long: `Watch enhances a local HTML file and keeps observing it. Whenever the file
is rewritten with a heading or table in its body, the enhancement pass runs
again and the file is updated if anything changed.

The package URL map is fetched at most once for the whole watch session.

Examples:
  # Keep a page dump enhanced, resolving packages against a local app
  pluginlinks watch --page-url http://localhost:9999/settings page.html`,
		Args: cobra.ExactArgs(1),
		RunE: runWatchCmd,
	}

	addGraphQLFlags(cmd)

	cmd.Flags().String("page-url", "",
		"URL of the page being watched")
	cmd.Flags().String("graphql-endpoint", "",
		"Absolute GraphQL endpoint URL (overrides --graphql-path)")
	cmd.Flags().String("cookie", "",
		"Cookie sent with GraphQL requests (overrides the config file)")
	cmd.Flags().Duration("debounce", watcher.DefaultDebounce,
		"How long to wait for writes to settle before re-running")

	return cmd
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildBaseConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.PageURL, err = cmd.Flags().GetString("page-url"); err != nil {
		return err
	}
	if cfg.GraphQLEndpoint, err = cmd.Flags().GetString("graphql-endpoint"); err != nil {
		return err
	}
	if cfg.Cookie, err = cmd.Flags().GetString("cookie"); err != nil {
		return err
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}
	cfg.Targets = args

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	s, err := newWatchSession(cfg, args[0], logger)
	if err != nil {
		return err
	}
	defer s.close()

	return ignoreCanceled(s.run(ctx, debounce, cmd.OutOrStdout()))
}

// watchSession is one watched file and the resolver shared by every pass.
type watchSession struct {
	cfg     *config.Config
	path    string
	pageURL string
	mapper  enhance.URLMapper
	logger  *slog.Logger
	out     io.Writer
	record  func(ctx context.Context, pass *model.Pass)
	closeFn func()
}

func newWatchSession(cfg *config.Config, path string, logger *slog.Logger) (*watchSession, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", path, err)
	}

	pageURL := cfg.PageURL
	if pageURL == "" {
		local, _ := localPath(path)
		pageURL = fileURL(local)
	}

	db := openHistory(cfg, logger)
	s := &watchSession{
		cfg:     cfg,
		path:    path,
		pageURL: pageURL,
		mapper:  newMapper(cfg, pageURL, logger),
		logger:  logger,
		out:     io.Discard,
		record: func(ctx context.Context, pass *model.Pass) {
			savePass(ctx, db, pass, logger)
		},
		closeFn: func() {
			if db != nil {
				_ = db.Close()
			}
		},
	}
	return s, nil
}

func (s *watchSession) close() {
	s.closeFn()
}

// run performs the initial pass, then re-runs on every relevant change.
func (s *watchSession) run(ctx context.Context, debounce time.Duration, out io.Writer) error {
	s.out = out

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	doc, err := dom.Parse(bytes.NewReader(data), s.pageURL)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	s.pass(ctx, doc)

	mutations := make(chan watcher.Mutation)
	source := watcher.NewFileSource(s.path,
		watcher.WithDebounce(debounce),
		watcher.WithFileLogger(s.logger),
	)
	w := watcher.New(s.onMutation, watcher.WithLogger(s.logger))

	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", s.path)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return source.Run(ctx, mutations)
	})
	g.Go(func() error {
		return w.Run(ctx, mutations)
	})
	return g.Wait()
}

func (s *watchSession) onMutation(ctx context.Context, m watcher.Mutation) {
	doc, err := dom.FromNode(m.Root, s.pageURL)
	if err != nil {
		s.logger.Warn("failed to wrap document", "path", s.path, "error", err)
		return
	}
	s.pass(ctx, doc)
}

// pass runs the pipeline over doc and writes the file back only when the
// pass changed it, so the write it causes yields a no-op pass.
func (s *watchSession) pass(ctx context.Context, doc *dom.Document) {
	job := pipeline.NewJob(doc)
	p := pipeline.DefaultPipeline(s.mapper,
		pipeline.WithForce(s.cfg.Force),
		pipeline.WithPipelineMarkers(markers(s.cfg)),
		pipeline.WithPipelineLogger(s.logger),
	)
	if err := p.Execute(ctx, job); err != nil {
		s.logger.Warn("enhancement failed", "path", s.path, "error", err)
		return
	}
	s.record(ctx, job.Pass)

	if !job.Pass.Changed() {
		s.logger.Debug("no changes", "path", s.path, "reason", job.Pass.Reason)
		return
	}
	if err := renderToFile(doc, s.path); err != nil {
		s.logger.Warn("failed to write enhanced file", "path", s.path, "error", err)
		return
	}
	fmt.Fprintf(s.out, "%s: linked %d version(s)\n", s.path, len(job.Pass.Linked))
}
