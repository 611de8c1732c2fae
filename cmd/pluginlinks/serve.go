package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pluginlinks/internal/config"
	"github.com/nao1215/pluginlinks/internal/proxy"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a reverse proxy that links plugin versions on the fly",
		Long: `Serve starts an HTTP reverse proxy in front of the application. Plugins pages
passing through it are enhanced before they reach the browser; every other
request is forwarded untouched.

Package URL maps are fetched with the browser's own cookie and cached per
session for --session-ttl.

Examples:
  # Proxy a local application and open http://127.0.0.1:8787/settings
  pluginlinks serve --upstream http://localhost:9999

  # Listen on all interfaces with a shorter session lifetime
  pluginlinks serve --upstream http://localhost:9999 --listen :8787 --session-ttl 5m`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addGraphQLFlags(cmd)

	cmd.Flags().StringP("upstream", "u", "",
		"Base URL of the application to proxy (required)")
	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().Duration("session-ttl", config.DefaultSessionTTL,
		"How long a session reuses its package URL map")
	cmd.Flags().Int("session-cache-size", config.DefaultSessionCacheSize,
		"Maximum number of sessions kept in memory")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Largest HTML page that is rewritten")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildBaseConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Upstream, err = cmd.Flags().GetString("upstream"); err != nil {
		return err
	}
	if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
		return err
	}
	if cfg.SessionTTL, err = cmd.Flags().GetDuration("session-ttl"); err != nil {
		return err
	}
	if cfg.SessionCacheSize, err = cmd.Flags().GetInt("session-cache-size"); err != nil {
		return err
	}
	if cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size"); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.RequireUpstream(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	site := cfg.SiteConfig(hostOf(cfg.Upstream))
	graphqlPath := cfg.GraphQLPath
	if site.GraphQLPath != "" && graphqlPath == config.DefaultGraphQLPath {
		graphqlPath = site.GraphQLPath
	}

	opts := []proxy.Option{
		proxy.WithLogger(logger),
		proxy.WithTransport(newUpstreamTransport(cfg.Timeout)),
		proxy.WithGraphQLPath(graphqlPath),
		proxy.WithMarkers(markers(cfg)),
		proxy.WithForce(cfg.Force),
		proxy.WithTimeout(cfg.Timeout),
		proxy.WithMaxBodySize(cfg.MaxBodySize),
		proxy.WithUserAgent(cfg.UserAgent),
		proxy.WithHeaders(site.Headers),
		proxy.WithSourceConcurrency(cfg.SourceConcurrency),
		proxy.WithSessions(cfg.SessionCacheSize, cfg.SessionTTL),
	}
	if db := openHistory(cfg, logger); db != nil {
		defer db.Close()
		opts = append(opts, proxy.WithRecorder(db))
	}

	srv, err := proxy.New(cfg.Upstream, opts...)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Proxying %s on http://%s\n", cfg.Upstream, cfg.ListenAddress)
	return srv.ListenAndServe(ctx, cfg.ListenAddress)
}

// newUpstreamTransport clones the default transport with a response
// header timeout.
func newUpstreamTransport(timeout time.Duration) http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ResponseHeaderTimeout = timeout
	return t
}
