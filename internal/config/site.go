package config

// SiteConfig holds per-host settings.
type SiteConfig struct {
	// Cookie is sent with document and GraphQL requests to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers for requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// GraphQLPath overrides the endpoint path for this host.
	GraphQLPath string `yaml:"graphqlPath,omitempty"`
}

// Markers holds the marker selectors in the config file.
type Markers struct {
	PackageID string `yaml:"packageID,omitempty"`
	Version   string `yaml:"version,omitempty"`
}

// File represents the structure of the .pluginlinks configuration file.
type File struct {
	// GraphQLPath is the default endpoint path.
	GraphQLPath string `yaml:"graphqlPath,omitempty"`

	// Markers are the package-marker selectors.
	Markers Markers `yaml:"markers,omitempty"`

	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps hosts (with port, e.g. "localhost:9999") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns the settings for host merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := SiteConfig{
		Cookie:      cf.Defaults.Cookie,
		GraphQLPath: cf.Defaults.GraphQLPath,
	}
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}
	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.GraphQLPath != "" {
		result.GraphQLPath = siteConfig.GraphQLPath
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	return result
}
