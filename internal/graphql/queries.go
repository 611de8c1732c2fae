package graphql

import (
	"context"
	"strings"

	"github.com/nao1215/pluginlinks/internal/model"
)

const sourcesQuery = `query PluginPackageSources {
  configuration {
    general {
      pluginPackageSources {
        url
      }
    }
  }
}`

const packagesQuery = `query AvailablePlugins($source: String!) {
  availablePackages(source: $source, type: Plugin) {
    package_id
    metadata
  }
}`

// PluginPackageSources returns the configured plugin package source URLs
// in configuration order. Blank entries are dropped.
func (c *Client) PluginPackageSources(ctx context.Context) ([]string, error) {
	var data struct {
		Configuration struct {
			General struct {
				PluginPackageSources []struct {
					URL string `json:"url"`
				} `json:"pluginPackageSources"`
			} `json:"general"`
		} `json:"configuration"`
	}
	if err := c.Do(ctx, sourcesQuery, nil, &data); err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(data.Configuration.General.PluginPackageSources))
	for _, s := range data.Configuration.General.PluginPackageSources {
		if u := strings.TrimSpace(s.URL); u != "" {
			sources = append(sources, u)
		}
	}
	return sources, nil
}

// AvailablePlugins returns the plugin packages offered by source.
func (c *Client) AvailablePlugins(ctx context.Context, source string) ([]model.Package, error) {
	var data struct {
		AvailablePackages []model.Package `json:"availablePackages"`
	}
	if err := c.Do(ctx, packagesQuery, map[string]any{"source": source}, &data); err != nil {
		return nil, err
	}
	if data.AvailablePackages == nil {
		return []model.Package{}, nil
	}
	return data.AvailablePackages, nil
}
