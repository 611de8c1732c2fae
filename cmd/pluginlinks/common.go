package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/pluginlinks/internal/config"
	"github.com/nao1215/pluginlinks/internal/database"
	"github.com/nao1215/pluginlinks/internal/enhance"
	"github.com/nao1215/pluginlinks/internal/graphql"
	plog "github.com/nao1215/pluginlinks/internal/log"
	"github.com/nao1215/pluginlinks/internal/model"
	"github.com/nao1215/pluginlinks/internal/report"
	"github.com/nao1215/pluginlinks/internal/resolver"
)

// addGraphQLFlags registers the flags shared by commands that may resolve
// package URLs.
func addGraphQLFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pluginlinks in current or home directory)")
	cmd.Flags().String("graphql-path", config.DefaultGraphQLPath,
		"GraphQL endpoint path on the page origin")
	cmd.Flags().String("package-id-marker", config.DefaultPackageIDMarker,
		"CSS selector of the package id element in each row")
	cmd.Flags().String("version-marker", config.DefaultVersionMarker,
		"CSS selector of the version element in each row")
	cmd.Flags().Bool("force", false,
		"Enhance the page even if its URL does not look like a plugins page")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for page fetches and package URL resolution")
	cmd.Flags().Int("source-concurrency", config.DefaultSourceConcurrency,
		"Maximum parallel package source queries (0 = unlimited)")
	cmd.Flags().Bool("save-db", true,
		"Record each pass in the run history database")
	cmd.Flags().String("db-dir", "",
		"Run history directory (default: XDG data directory)")
}

// buildBaseConfig reads the root and shared flags and applies the config file.
func buildBaseConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFormat = getLogFormatFlag(cmd)
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}
	if cfg.GraphQLPath, err = cmd.Flags().GetString("graphql-path"); err != nil {
		return nil, err
	}
	if cfg.PackageIDMarker, err = cmd.Flags().GetString("package-id-marker"); err != nil {
		return nil, err
	}
	if cfg.VersionMarker, err = cmd.Flags().GetString("version-marker"); err != nil {
		return nil, err
	}
	if cfg.Force, err = cmd.Flags().GetBool("force"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.SourceConcurrency, err = cmd.Flags().GetInt("source-concurrency"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = cmd.Flags().GetBool("save-db"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFile applies the configuration file to cfg. An explicitly named
// file must exist; otherwise a missing file is ignored.
func loadConfigFile(cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case path != "":
		f, err := config.LoadConfigFile(path)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(f)
	case explicit:
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFormatFlag retrieves --log-format, defaulting to text when the
// command runs without the root command.
func getLogFormatFlag(cmd *cobra.Command) string {
	if f := cmd.Flags().Lookup("log-format"); f != nil {
		return f.Value.String()
	}
	if f := cmd.Root().PersistentFlags().Lookup("log-format"); f != nil {
		return f.Value.String()
	}
	return config.DefaultLogFormat
}

// setupLogger creates the masking logger on stderr and makes it the default.
func setupLogger(cfg *config.Config) *slog.Logger {
	logger := plog.NewLogger(os.Stderr, cfg.Verbose, cfg.LogFormat)
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// markers returns the marker selectors configured in cfg.
func markers(cfg *config.Config) enhance.Markers {
	return enhance.Markers{
		PackageID: cfg.PackageIDMarker,
		Version:   cfg.VersionMarker,
	}.WithDefaults()
}

// hostOf returns the host[:port] of rawURL, or "" for non-URLs.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// fileURL returns the file:// URL of a local path.
func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// errMapper is a URLMapper that always fails. It stands in when no GraphQL
// endpoint can be derived for a page, so package tables are skipped with a
// recorded reason instead of aborting the pass.
type errMapper struct {
	err error
}

func (m errMapper) PackageURLMap(context.Context) (model.PackageURLMap, error) {
	return nil, m.err
}

// newMapper builds the package URL resolver for one page lifetime.
func newMapper(cfg *config.Config, pageURL string, logger *slog.Logger) enhance.URLMapper {
	site := cfg.SiteConfig(hostOf(pageURL))

	endpoint := cfg.GraphQLEndpoint
	if endpoint == "" {
		path := cfg.GraphQLPath
		if site.GraphQLPath != "" && path == config.DefaultGraphQLPath {
			path = site.GraphQLPath
		}
		var err error
		endpoint, err = graphql.EndpointFor(pageURL, path)
		if err != nil {
			return errMapper{err: err}
		}
	}

	cookie := site.Cookie
	if cfg.Cookie != "" {
		cookie = cfg.Cookie
	}

	client := graphql.NewClient(endpoint,
		graphql.WithCookie(cookie),
		graphql.WithHeaders(site.Headers),
		graphql.WithUserAgent(cfg.UserAgent),
	)
	return resolver.New(client,
		resolver.WithLogger(logger),
		resolver.WithTimeout(cfg.Timeout),
		resolver.WithConcurrency(cfg.SourceConcurrency),
	)
}

// openHistory opens the run history database when saving is enabled.
// Failures are logged and yield a nil database.
func openHistory(cfg *config.Config, logger *slog.Logger) *database.HistoryDB {
	if !cfg.SaveToDB {
		return nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("run history disabled", "dir", cfg.DBDir, "error", err)
		return nil
	}
	return db
}

// savePass records pass in db. A nil db is a no-op.
func savePass(ctx context.Context, db *database.HistoryDB, pass *model.Pass, logger *slog.Logger) {
	if db == nil || pass == nil {
		return
	}
	if _, err := db.SavePass(ctx, pass); err != nil {
		logger.Warn("failed to save pass", "page", pass.PageURL, "error", err)
	}
}

// reportFormat returns the report format selected by --json/--markdown.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}

// writeReport writes passes to the report file or to w.
func writeReport(cfg *config.Config, w io.Writer, passes []*model.Pass) error {
	out, closeFn, err := report.OpenOutput(cfg.ReportFile, w)
	if err != nil {
		return err
	}

	writer, err := report.New(reportFormat(cfg), out)
	if err != nil {
		_ = closeFn()
		return err
	}
	if _, err := writer.WritePasses(passes); err != nil {
		_ = closeFn()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return closeFn()
}

// ignoreCanceled turns context cancellation into a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
