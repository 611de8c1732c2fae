// Package log builds slog loggers that mask credentials before they reach
// the output.
//
// pluginlinks forwards session cookies and custom headers to the host
// application, so every logger it creates wraps its handler in
// SecureHandler. The handler masks:
//   - attributes whose key names a credential (cookie, authorization, token)
//   - values that look like bearer, basic or JWT tokens
//   - credentials embedded in URLs (user info and sensitive query parameters)
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose, "text")
//	logger.Debug("fetching page", "url", target, "cookie", cookie)
package log
