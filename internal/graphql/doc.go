// Package graphql is a minimal GraphQL-over-HTTP client for the host
// application's API.
//
// Only the two queries pluginlinks needs are exposed as typed helpers:
// the configured plugin package sources and the plugin packages available
// from one source. Requests carry the configured cookie and headers so
// they are made with the same credentials as the page itself.
package graphql
