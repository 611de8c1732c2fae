package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nao1215/pluginlinks/internal/config"
	"github.com/nao1215/pluginlinks/internal/dom"
	"github.com/nao1215/pluginlinks/internal/fetch"
	"github.com/nao1215/pluginlinks/internal/model"
	"github.com/nao1215/pluginlinks/internal/pipeline"
)

// NewEnhanceCmd creates the enhance command.
func NewEnhanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enhance <file-or-url>...",
		Short: "Link plugin versions in HTML pages",
		Long: `Enhance runs one pass over each page: it checks that the page is a plugins
settings page, finds the plugin table and turns each version label into a
link to the plugin's GitHub repository.

Targets may be local HTML files or http(s) URLs. Package tables (no URL
column) are resolved through the GraphQL endpoint on the page origin; for
local files use --page-url or --graphql-endpoint to name the application.

Examples:
  # Enhance a saved page in place
  pluginlinks enhance --in-place settings.html

  # Fetch a live page and print the enhanced HTML
  pluginlinks enhance -o - http://localhost:9999/settings?tab=plugins

  # Enhance a saved page using a running application's package listing
  pluginlinks enhance --page-url http://localhost:9999/settings -o out.html saved.html

  # Enhance several pages and write a JSON summary
  pluginlinks enhance --json --report-file report.json a.html b.html`,
		Args: cobra.ArbitraryArgs,
		RunE: runEnhanceCmd,
	}

	addGraphQLFlags(cmd)

	cmd.Flags().String("page-url", "",
		"URL of the page being enhanced (single target only)")
	cmd.Flags().String("graphql-endpoint", "",
		"Absolute GraphQL endpoint URL (overrides --graphql-path)")
	cmd.Flags().String("cookie", "",
		"Cookie sent with page and GraphQL requests (overrides the config file)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent for page and GraphQL requests")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum page size in bytes")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pages processed concurrently")

	cmd.Flags().StringP("output", "o", "",
		"Write the enhanced HTML to this file, or - for stdout (single target only)")
	cmd.Flags().BoolP("in-place", "i", false,
		"Write changes back to local files")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().String("report-file", "",
		"Write the report to this file (creates directories if needed)")

	return cmd
}

func runEnhanceCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildEnhanceConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.RequireTargets(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	return runEnhance(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

func buildEnhanceConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := buildBaseConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.PageURL, err = cmd.Flags().GetString("page-url"); err != nil {
		return nil, err
	}
	if cfg.GraphQLEndpoint, err = cmd.Flags().GetString("graphql-endpoint"); err != nil {
		return nil, err
	}
	if cfg.Cookie, err = cmd.Flags().GetString("cookie"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Output, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.InPlace, err = cmd.Flags().GetBool("in-place"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("report-file"); err != nil {
		return nil, err
	}

	cfg.Targets = args
	return cfg, nil
}

// loadedPage remembers where a target came from so the enhanced document
// can be written back.
type loadedPage struct {
	page    *model.Page
	pageURL string
}

// enhancer runs the batch for the enhance command.
type enhancer struct {
	cfg    *config.Config
	logger *slog.Logger

	mu    sync.Mutex
	pages map[string]loadedPage
}

func (e *enhancer) fetcherFor(target string) *fetch.Fetcher {
	site := e.cfg.SiteConfig(hostOf(target))
	cookie := site.Cookie
	if e.cfg.Cookie != "" {
		cookie = e.cfg.Cookie
	}
	return fetch.New(
		fetch.WithHTTPClient(&http.Client{Timeout: e.cfg.Timeout}),
		fetch.WithUserAgent(e.cfg.UserAgent),
		fetch.WithMaxBodySize(e.cfg.MaxBodySize),
		fetch.WithCookie(cookie),
		fetch.WithHeaders(site.Headers),
	)
}

func (e *enhancer) load(ctx context.Context, target string) (*pipeline.Job, error) {
	pg, err := e.fetcherFor(target).Fetch(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", target, err)
	}

	pageURL := pg.URL
	if e.cfg.PageURL != "" {
		pageURL = e.cfg.PageURL
	}

	doc, err := dom.Parse(bytes.NewReader(pg.Raw), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", target, err)
	}

	e.mu.Lock()
	e.pages[target] = loadedPage{page: pg, pageURL: pageURL}
	e.mu.Unlock()

	return pipeline.NewJob(doc), nil
}

func (e *enhancer) pipelineFor(target string) *pipeline.Pipeline {
	e.mu.Lock()
	pageURL := e.pages[target].pageURL
	e.mu.Unlock()

	return pipeline.DefaultPipeline(newMapper(e.cfg, pageURL, e.logger),
		pipeline.WithForce(e.cfg.Force),
		pipeline.WithPipelineMarkers(markers(e.cfg)),
		pipeline.WithPipelineLogger(e.logger),
	)
}

func runEnhance(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	logger.Info("starting enhancement",
		"targets", len(cfg.Targets),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	db := openHistory(cfg, logger)
	if db != nil {
		defer db.Close()
	}

	e := &enhancer{cfg: cfg, logger: logger, pages: make(map[string]loadedPage)}
	bp := pipeline.NewBatchProcessor(e.load, e.pipelineFor,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	results, err := bp.ProcessBatch(ctx, cfg.Targets)
	if err != nil {
		return ignoreCanceled(err)
	}

	// HTML on stdout leaves the report for stderr.
	reportOut := stdout
	if cfg.Output == "-" {
		reportOut = stderr
	}

	var (
		passes []*model.Pass
		failed int
	)
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Err != nil {
			failed++
			fmt.Fprintf(stderr, "Error: %s: %v\n", r.Target, r.Err)
		}
		if r.Job == nil {
			continue
		}
		passes = append(passes, r.Job.Pass)
		savePass(ctx, db, r.Job.Pass, logger)

		if err := e.writeResult(r, stdout); err != nil {
			failed++
			fmt.Fprintf(stderr, "Error: %s: %v\n", r.Target, err)
		}
	}

	if err := writeReport(cfg, reportOut, passes); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d target(s) failed", failed, len(cfg.Targets))
	}
	return nil
}

// writeResult writes the enhanced document where the flags ask for it.
func (e *enhancer) writeResult(r *pipeline.Result, stdout io.Writer) error {
	switch e.cfg.Output {
	case "":
	case "-":
		if err := r.Job.Doc.Render(stdout); err != nil {
			return fmt.Errorf("failed to render document: %w", err)
		}
	default:
		if err := renderToFile(r.Job.Doc, e.cfg.Output); err != nil {
			return err
		}
	}

	if !e.cfg.InPlace || !r.Job.Pass.Changed() {
		return nil
	}
	path, ok := localPath(r.Target)
	if !ok {
		e.logger.Warn("--in-place ignored for remote target", "target", r.Target)
		return nil
	}
	return renderToFile(r.Job.Doc, path)
}

// renderToFile writes doc to path, keeping the mode of an existing file.
func renderToFile(doc *dom.Document, path string) error {
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}

	mode := os.FileMode(0600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, buf.Bytes(), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// localPath returns the filesystem path of a local target.
func localPath(target string) (string, bool) {
	if fetch.IsRemote(target) {
		return "", false
	}
	if u, err := url.Parse(target); err == nil && u.Scheme == "file" {
		return u.Path, true
	}
	return target, true
}
