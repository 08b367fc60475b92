// Package middleware provides HTTP middleware components for the access log server.
//
// Available middleware:
//   - AccessLogger: Records one access log entry per request and assigns
//     each request an X-Request-ID
//   - RateLimiter: Per-client rate limiting using token bucket algorithm
//
// Usage:
//
//	al := middleware.NewAccessLogger(middleware.AccessLoggerConfig{Writer: w})
//	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
//	handler = al.Middleware(rl.Middleware(handler))
package middleware
