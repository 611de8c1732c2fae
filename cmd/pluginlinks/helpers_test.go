package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nao1215/pluginlinks/internal/config"
	"github.com/nao1215/pluginlinks/internal/model"
)

const urlColumnPage = `<html><body><h2>Available Plugins</h2>
<table><thead><tr><th>Plugin</th><th>Version</th><th>URL</th></tr></thead>
<tbody>
<tr><td>Foo</td><td>2.0.0</td><td>https://github.com/foo/foo</td></tr>
<tr><td>Bar</td><td>1.0.0</td><td>https://example.com/bar</td></tr>
</tbody></table></body></html>`

const markerPage = `<html><body><h2>Available Plugins</h2>
<table><thead><tr><th>Name</th><th>Version</th></tr></thead>
<tbody>
<tr><td data-role="package-id">Tagger</td><td data-role="version">1.2.0</td></tr>
<tr><td data-role="package-id">unknown</td><td data-role="version">0.1.0</td></tr>
</tbody></table></body></html>`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns defaults with history disabled and no config file.
func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.SaveToDB = false
	cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	return cfg
}

// emptyConfigFile writes an empty config file so commands ignore the
// user's own .pluginlinks.
func emptyConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func writePage(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write page: %v", err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// newGraphQLServer serves one package source whose only package is tagger.
func newGraphQLServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(string(body), "pluginPackageSources") {
			if calls != nil {
				calls.Add(1)
			}
			_, _ = io.WriteString(w, `{"data":{"configuration":{"general":{"pluginPackageSources":[{"url":"https://example.com/index.yml"}]}}}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"availablePackages":[{"package_id":"tagger","metadata":{"url":"https://github.com/acme/tagger"}}]}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// staticMapper returns a fixed map and counts its calls.
type staticMapper struct {
	m     model.PackageURLMap
	calls atomic.Int32
}

func (s *staticMapper) PackageURLMap(context.Context) (model.PackageURLMap, error) {
	s.calls.Add(1)
	return s.m, nil
}
