package model

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// githubURLPattern matches repository URLs hosted on github.com.
// Scheme and host are compared case-insensitively.
var githubURLPattern = regexp.MustCompile(`(?i)^https?://github\.com/`)

// metadataURLFields lists the metadata keys that may hold a repository URL,
// in priority order. The first key whose value is a GitHub URL wins.
var metadataURLFields = []string{
	"url",
	"homepage",
	"homepage_url",
	"homepageUrl",
	"repository",
	"repo",
	"source",
}

// IsGitHubURL reports whether s points at github.com over http or https.
func IsGitHubURL(s string) bool {
	return githubURLPattern.MatchString(s)
}

// NormalizePackageID converts a package identifier to the form used as a
// PackageURLMap key: surrounding whitespace removed and lowercased.
func NormalizePackageID(id string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(id))
}

// Package is a plugin package as listed by a package source.
type Package struct {
	// ID is the package identifier (package_id in the GraphQL schema).
	ID string `json:"package_id"`

	// Metadata is the loosely typed metadata map attached to the package.
	// It may be null or missing entirely.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// GitHubURL returns the first metadata value that is a GitHub repository URL.
//
// String values are used as-is (after trimming). Object values contribute
// their "url" member, which covers npm-style {"type": "git", "url": "..."}
// repository entries.
func (p Package) GitHubURL() (string, bool) {
	if len(p.Metadata) == 0 || !gjson.ValidBytes(p.Metadata) {
		return "", false
	}

	for _, field := range metadataURLFields {
		value := gjson.GetBytes(p.Metadata, gjson.Escape(field))
		var candidate string
		switch {
		case value.Type == gjson.String:
			candidate = value.String()
		case value.IsObject():
			if nested := value.Get("url"); nested.Type == gjson.String {
				candidate = nested.String()
			}
		}
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && IsGitHubURL(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// PackageURLMap maps normalized package ids to GitHub repository URLs.
type PackageURLMap map[string]string

// Lookup normalizes id and returns the repository URL registered for it.
func (m PackageURLMap) Lookup(id string) (string, bool) {
	if m == nil {
		return "", false
	}
	u, ok := m[NormalizePackageID(id)]
	return u, ok
}

// MergePackages builds a PackageURLMap from per-source package lists.
//
// Sources are merged in slice order. The first source that contributes a
// GitHub URL for a normalized id keeps it; later duplicates are ignored.
// Packages without a recognizable GitHub URL are left out and do not claim
// their id.
func MergePackages(perSource [][]Package) PackageURLMap {
	m := make(PackageURLMap)
	for _, pkgs := range perSource {
		for _, pkg := range pkgs {
			id := NormalizePackageID(pkg.ID)
			if id == "" {
				continue
			}
			if _, exists := m[id]; exists {
				continue
			}
			if u, ok := pkg.GitHubURL(); ok {
				m[id] = u
			}
		}
	}
	return m
}
