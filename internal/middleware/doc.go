// Package middleware provides the gin middleware of the tool server.
//
// Stack, outermost first:
//   - RequestID: assigns or propagates X-Request-ID
//   - Logger: one zap entry per request, panics recovered to a JSON 500
//   - CORS: cross-origin access for browser-based agents
//   - GlobalRateLimit: one token bucket for the whole server (optional)
//   - RateLimit: per-IP token bucket
//
// Example Usage:
//
//	router.Use(middleware.RequestID(), middleware.Logger(log))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
