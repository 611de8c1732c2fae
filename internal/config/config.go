package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/pluginlinks/internal/enhance"
	"github.com/nao1215/pluginlinks/internal/fetch"
	"github.com/nao1215/pluginlinks/internal/graphql"
	"github.com/nao1215/pluginlinks/internal/proxy"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pluginlinks"

	// DefaultTimeout bounds each HTTP request and each shared package URL
	// resolution.
	DefaultTimeout = proxy.DefaultTimeout

	// DefaultBatchSize is how many documents `enhance` processes at once.
	DefaultBatchSize = 4

	// DefaultSourceConcurrency limits parallel package source queries.
	// Zero means one query per source, all at once.
	DefaultSourceConcurrency = 0

	// DefaultUserAgent identifies pluginlinks in HTTP requests.
	DefaultUserAgent = fetch.DefaultUserAgent

	// DefaultMaxBodySize limits the size of documents and responses read.
	DefaultMaxBodySize = proxy.DefaultMaxBodySize

	// DefaultGraphQLPath is the endpoint path relative to the page origin.
	DefaultGraphQLPath = graphql.DefaultPath

	// DefaultListenAddress is where `serve` listens.
	DefaultListenAddress = "127.0.0.1:8787"

	// DefaultSessionTTL is how long the proxy keeps a session's package URL map.
	DefaultSessionTTL = proxy.DefaultSessionTTL

	// DefaultSessionCacheSize is the number of sessions the proxy keeps.
	DefaultSessionCacheSize = proxy.DefaultSessionCacheSize

	// DefaultLogFormat selects the human readable log handler.
	DefaultLogFormat = "text"

	// DefaultPackageIDMarker selects the package id element of a row.
	DefaultPackageIDMarker = enhance.DefaultPackageIDMarker

	// DefaultVersionMarker selects the version element of a row.
	DefaultVersionMarker = enhance.DefaultVersionMarker
)

// Config holds all configuration options for pluginlinks.
// It is populated from CLI flags and the optional config file and passed
// down explicitly.
type Config struct {
	// Verbose enables debug logging. When false only warnings and errors
	// are logged.
	Verbose bool

	// LogFormat is "text" or "json".
	LogFormat string

	// Timeout bounds each HTTP request and each package URL resolution.
	Timeout time.Duration

	// MaxBodySize is the maximum document or response size in bytes.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// GraphQLPath is the endpoint path relative to the page origin.
	GraphQLPath string

	// GraphQLEndpoint is an absolute endpoint URL. When set it overrides
	// GraphQLPath, which is required for local files.
	GraphQLEndpoint string

	// PackageIDMarker and VersionMarker are the CSS selectors for
	// package-marker tables.
	PackageIDMarker string
	VersionMarker   string

	// Cookie overrides the per-host cookie from the config file.
	Cookie string

	// Force enhances documents whose URL does not look like a plugins page.
	Force bool

	// PageURL overrides the document URL used for page matching, relative
	// link resolution and the GraphQL origin.
	PageURL string

	// BatchSize is the number of documents processed concurrently.
	BatchSize int

	// SourceConcurrency limits parallel package source queries.
	SourceConcurrency int

	// ListenAddress is the proxy listen address.
	ListenAddress string

	// Upstream is the application the proxy forwards to.
	Upstream string

	// SessionTTL is how long the proxy keeps a session's resolver.
	SessionTTL time.Duration

	// SessionCacheSize is the number of sessions the proxy keeps.
	SessionCacheSize int

	// ConfigFilePath is the path to the configuration file. If empty,
	// .pluginlinks is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds per-host settings loaded from the config file.
	SiteConfigs *File

	// JSONReport and MarkdownReport select the report format.
	// They are mutually exclusive.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile is the report output path. Empty means stdout.
	ReportFile string

	// Output is where `enhance` writes the enhanced document. Empty
	// means stdout; "-" is also stdout. Only valid with a single target.
	Output string

	// InPlace rewrites local target files instead of writing Output.
	InPlace bool

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveToDB records passes in the run history database.
	SaveToDB bool

	// Targets are the documents to enhance: URLs or file paths.
	Targets []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		LogFormat:         DefaultLogFormat,
		Timeout:           DefaultTimeout,
		MaxBodySize:       DefaultMaxBodySize,
		UserAgent:         DefaultUserAgent,
		GraphQLPath:       DefaultGraphQLPath,
		PackageIDMarker:   DefaultPackageIDMarker,
		VersionMarker:     DefaultVersionMarker,
		BatchSize:         DefaultBatchSize,
		SourceConcurrency: DefaultSourceConcurrency,
		ListenAddress:     DefaultListenAddress,
		SessionTTL:        DefaultSessionTTL,
		SessionCacheSize:  DefaultSessionCacheSize,
	}
}

// XDGDataDir returns the XDG data directory for pluginlinks.
// On Linux: ~/.local/share/pluginlinks
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pluginlinks.
// On Linux: ~/.config/pluginlinks
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for pluginlinks.
// On Linux: ~/.cache/pluginlinks
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the settings shared by every command and returns the
// first problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.SourceConcurrency < 0 {
		return ErrInvalidSourceConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}
	if c.PackageIDMarker == "" || c.VersionMarker == "" {
		return ErrEmptyMarker
	}
	return nil
}

// RequireTargets checks the settings of commands that enhance documents.
func (c *Config) RequireTargets() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if len(c.Targets) > 1 && c.Output != "" && c.Output != "-" {
		return ErrOutputWithManyTargets
	}
	if len(c.Targets) > 1 && c.PageURL != "" {
		return ErrPageURLWithManyTargets
	}
	return nil
}

// RequireUpstream checks the settings of the proxy.
func (c *Config) RequireUpstream() error {
	if c.Upstream == "" {
		return ErrNoUpstream
	}
	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}
	if c.SessionCacheSize <= 0 {
		return ErrInvalidSessionCacheSize
	}
	return nil
}

// ApplyFile copies file-level settings that flags left at their defaults.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f
	if f.GraphQLPath != "" && c.GraphQLPath == DefaultGraphQLPath {
		c.GraphQLPath = f.GraphQLPath
	}
	if f.Markers.PackageID != "" && c.PackageIDMarker == DefaultPackageIDMarker {
		c.PackageIDMarker = f.Markers.PackageID
	}
	if f.Markers.Version != "" && c.VersionMarker == DefaultVersionMarker {
		c.VersionMarker = f.Markers.Version
	}
}

// SiteConfig returns the merged settings for host, or the zero value
// when no config file was loaded.
func (c *Config) SiteConfig(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}
