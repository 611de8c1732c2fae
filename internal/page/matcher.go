package page

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	settingsPathToken = "settings"
	pluginsHashToken  = "plugins"
)

// IsPluginsPage reports whether u looks like the plugins settings screen.
// The path is checked for "settings" and the fragment for "plugins",
// both case-insensitively. A nil URL never matches.
func IsPluginsPage(u *url.URL) bool {
	if u == nil {
		return false
	}
	lower := cases.Lower(language.Und)
	if strings.Contains(lower.String(u.Path), settingsPathToken) {
		return true
	}
	return strings.Contains(lower.String(u.Fragment), pluginsHashToken)
}

// IsPluginsPageString parses raw and applies IsPluginsPage.
// Unparseable input does not match.
func IsPluginsPageString(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return IsPluginsPage(u)
}
