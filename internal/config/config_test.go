package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/pluginlinks/internal/enhance"
	"github.com/nao1215/pluginlinks/internal/fetch"
	"github.com/nao1215/pluginlinks/internal/graphql"
	"github.com/nao1215/pluginlinks/internal/proxy"
)

// TestNewConfigMatchesComponentDefaults keeps the CLI defaults in line with
// the defaults of the packages that consume them.
func TestNewConfigMatchesComponentDefaults(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.PackageIDMarker != enhance.DefaultMarkers().PackageID {
		t.Errorf("package id marker %q differs from enhance default %q", cfg.PackageIDMarker, enhance.DefaultMarkers().PackageID)
	}
	if cfg.VersionMarker != enhance.DefaultMarkers().Version {
		t.Errorf("version marker %q differs from enhance default %q", cfg.VersionMarker, enhance.DefaultMarkers().Version)
	}
	if cfg.GraphQLPath != graphql.DefaultPath {
		t.Errorf("graphql path %q differs from graphql default %q", cfg.GraphQLPath, graphql.DefaultPath)
	}
	if cfg.UserAgent != fetch.DefaultUserAgent {
		t.Errorf("user agent %q differs from fetch default %q", cfg.UserAgent, fetch.DefaultUserAgent)
	}
	if cfg.SessionTTL != proxy.DefaultSessionTTL {
		t.Errorf("session ttl %v differs from proxy default %v", cfg.SessionTTL, proxy.DefaultSessionTTL)
	}
	if cfg.SessionCacheSize != proxy.DefaultSessionCacheSize {
		t.Errorf("session cache size %d differs from proxy default %d", cfg.SessionCacheSize, proxy.DefaultSessionCacheSize)
	}
	if cfg.Timeout != proxy.DefaultTimeout {
		t.Errorf("timeout %v differs from proxy default %v", cfg.Timeout, proxy.DefaultTimeout)
	}
	if cfg.MaxBodySize != proxy.DefaultMaxBodySize {
		t.Errorf("max body size %d differs from proxy default %d", cfg.MaxBodySize, proxy.DefaultMaxBodySize)
	}
}

// TestNewConfig documents the default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default GraphQLPath is /graphql", func(t *testing.T) {
		t.Parallel()
		if cfg.GraphQLPath != "/graphql" {
			t.Errorf("expected GraphQLPath '/graphql', got %q", cfg.GraphQLPath)
		}
	})

	t.Run("default markers use data-role attributes", func(t *testing.T) {
		t.Parallel()
		if cfg.PackageIDMarker != `[data-role="package-id"]` {
			t.Errorf("unexpected package id marker %q", cfg.PackageIDMarker)
		}
		if cfg.VersionMarker != `[data-role="version"]` {
			t.Errorf("unexpected version marker %q", cfg.VersionMarker)
		}
	})

	t.Run("default proxy settings", func(t *testing.T) {
		t.Parallel()
		if cfg.ListenAddress != "127.0.0.1:8787" {
			t.Errorf("unexpected listen address %q", cfg.ListenAddress)
		}
		if cfg.SessionTTL != 30*time.Minute {
			t.Errorf("unexpected session ttl %v", cfg.SessionTTL)
		}
		if cfg.SessionCacheSize != 256 {
			t.Errorf("unexpected session cache size %d", cfg.SessionCacheSize)
		}
	})

	t.Run("default MaxBodySize is 5MB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxBodySize != 5*1024*1024 {
			t.Errorf("expected MaxBodySize 5MB, got %d", cfg.MaxBodySize)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected defaults to validate, got %v", err)
		}
	})
}

// TestConfigValidate tests each validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, want: ErrInvalidTimeout},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }, want: ErrInvalidBatchSize},
		{name: "negative source concurrency", modify: func(c *Config) { c.SourceConcurrency = -1 }, want: ErrInvalidSourceConcurrency},
		{name: "json and markdown", modify: func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, want: ErrConflictingReportFormats},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, want: ErrInvalidMaxBodySize},
		{name: "unknown log format", modify: func(c *Config) { c.LogFormat = "xml" }, want: ErrInvalidLogFormat},
		{name: "empty marker", modify: func(c *Config) { c.VersionMarker = "" }, want: ErrEmptyMarker},
		{name: "json logs", modify: func(c *Config) { c.LogFormat = "json" }, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigRequireTargets(t *testing.T) {
	t.Parallel()

	t.Run("no targets", func(t *testing.T) {
		t.Parallel()
		if err := NewConfig().RequireTargets(); !errors.Is(err, ErrNoTarget) {
			t.Errorf("expected ErrNoTarget, got %v", err)
		}
	})

	t.Run("output with many targets", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Targets = []string{"a.html", "b.html"}
		cfg.Output = "out.html"
		if err := cfg.RequireTargets(); !errors.Is(err, ErrOutputWithManyTargets) {
			t.Errorf("expected ErrOutputWithManyTargets, got %v", err)
		}
	})

	t.Run("page url with many targets", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Targets = []string{"a.html", "b.html"}
		cfg.PageURL = "http://localhost/settings"
		if err := cfg.RequireTargets(); !errors.Is(err, ErrPageURLWithManyTargets) {
			t.Errorf("expected ErrPageURLWithManyTargets, got %v", err)
		}
	})

	t.Run("stdout with many targets", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Targets = []string{"a.html", "b.html"}
		cfg.Output = "-"
		if err := cfg.RequireTargets(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestConfigRequireUpstream(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if err := cfg.RequireUpstream(); !errors.Is(err, ErrNoUpstream) {
		t.Errorf("expected ErrNoUpstream, got %v", err)
	}

	cfg.Upstream = "http://localhost:9999"
	if err := cfg.RequireUpstream(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.SessionTTL = 0
	if err := cfg.RequireUpstream(); !errors.Is(err, ErrInvalidSessionTTL) {
		t.Errorf("expected ErrInvalidSessionTTL, got %v", err)
	}
}

// TestFileGetSiteConfig tests merging of site settings over defaults.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	file := &File{
		Defaults: SiteConfig{
			Cookie:  "default=1",
			Headers: map[string]string{"X-Default": "d", "X-Shared": "default"},
		},
		Sites: map[string]SiteConfig{
			"localhost:9999": {
				Cookie:      "session=abc",
				Headers:     map[string]string{"X-Shared": "site"},
				GraphQLPath: "/api/graphql",
			},
		},
	}

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("other:1")
		if got.Cookie != "default=1" {
			t.Errorf("expected default cookie, got %q", got.Cookie)
		}
		if got.Headers["X-Default"] != "d" {
			t.Errorf("expected default header, got %v", got.Headers)
		}
	})

	t.Run("site overrides defaults", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("localhost:9999")
		if got.Cookie != "session=abc" {
			t.Errorf("expected site cookie, got %q", got.Cookie)
		}
		if got.Headers["X-Shared"] != "site" || got.Headers["X-Default"] != "d" {
			t.Errorf("unexpected merged headers %v", got.Headers)
		}
		if got.GraphQLPath != "/api/graphql" {
			t.Errorf("expected site graphql path, got %q", got.GraphQLPath)
		}
	})

	t.Run("merging does not mutate defaults", func(t *testing.T) {
		t.Parallel()

		_ = file.GetSiteConfig("localhost:9999")
		if file.Defaults.Headers["X-Shared"] != "default" {
			t.Errorf("defaults were modified: %v", file.Defaults.Headers)
		}
	})
}

func TestConfigApplyFile(t *testing.T) {
	t.Parallel()

	t.Run("file fills flag defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ApplyFile(&File{
			GraphQLPath: "/gql",
			Markers:     Markers{PackageID: ".pkg"},
		})
		if cfg.GraphQLPath != "/gql" {
			t.Errorf("expected /gql, got %q", cfg.GraphQLPath)
		}
		if cfg.PackageIDMarker != ".pkg" {
			t.Errorf("expected .pkg, got %q", cfg.PackageIDMarker)
		}
		if cfg.VersionMarker != DefaultVersionMarker {
			t.Errorf("expected default version marker, got %q", cfg.VersionMarker)
		}
	})

	t.Run("explicit flags win", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.GraphQLPath = "/flag"
		cfg.ApplyFile(&File{GraphQLPath: "/gql"})
		if cfg.GraphQLPath != "/flag" {
			t.Errorf("expected /flag, got %q", cfg.GraphQLPath)
		}
	})

	t.Run("site config without file", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ApplyFile(nil)
		if got := cfg.SiteConfig("localhost"); got.Cookie != "" {
			t.Errorf("expected empty site config, got %+v", got)
		}
	})
}

// TestLoadConfigFile tests loading the YAML file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.pluginlinks")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".pluginlinks")
		content := `graphqlPath: /api/graphql
markers:
  packageID: "[data-package]"
  version: ".version"
defaults:
  cookie: "default=abc"
sites:
  localhost:9999:
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
`
		if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.GraphQLPath != "/api/graphql" {
			t.Errorf("unexpected graphql path %q", cfg.GraphQLPath)
		}
		if cfg.Markers.PackageID != "[data-package]" || cfg.Markers.Version != ".version" {
			t.Errorf("unexpected markers %+v", cfg.Markers)
		}
		site, ok := cfg.Sites["localhost:9999"]
		if !ok {
			t.Fatal("expected localhost:9999 in sites")
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".pluginlinks")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0o600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfigFile(configPath)
		if !errors.Is(err, ErrInvalidConfigFile) {
			t.Errorf("expected ErrInvalidConfigFile, got %v", err)
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".pluginlinks")
		if err := os.WriteFile(configPath, []byte("graphqlPath: /graphql\n"), 0o600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0o600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if got := FindConfigFile(configPath); got != configPath {
			t.Errorf("expected %q, got %q", configPath, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("directory is not a config file", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(t.TempDir()); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
		"cache":  XDGCacheDir(),
	} {
		if !strings.HasSuffix(dir, AppName) {
			t.Errorf("expected %s dir to end with %q, got %q", name, AppName, dir)
		}
	}
}
