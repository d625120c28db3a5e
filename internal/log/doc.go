// Package log provides structured logging for the crawler, built on the
// standard slog package.
//
// The crawler handles cookie headers constantly (they are the object of
// study), so log records routinely carry Cookie and Set-Cookie values.
// Cookie VALUES are session-identifying secrets for the sites being
// measured, while cookie NAMES are exactly what the analysis needs to see.
// The MaskingHandler therefore rewrites cookie pairs to "name=***" instead
// of redacting the whole attribute.
//
// # Usage
//
//	logger := log.New(os.Stderr, verbose)
//	logger.Info("stripped cookies",
//	    "cookie", "sid=abc123; _ga=GA1.2.3",  // logged as "sid=***; _ga=***"
//	    "url", "https://example.com",
//	)
package log
