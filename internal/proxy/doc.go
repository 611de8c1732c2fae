// Package proxy serves an upstream web application and adds version links
// to its plugin settings pages on the way through.
//
// HTML responses for plugins pages are parsed, run through the enhancement
// pipeline and re-rendered. Everything else is passed through untouched.
// Package URL maps are resolved once per client session: sessions are keyed
// by the client's Cookie header and expire after a configurable lifetime.
package proxy
