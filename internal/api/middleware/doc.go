// Package middleware provides HTTP middleware for the widget relay server.
//
// Middleware stack includes:
//   - CORS: cross-origin access for host pages loading /pages, /topics and /frames
//   - RateLimit: per-IP token bucket rate limiting with idle client eviction
//   - GlobalRateLimit: a single bucket shared by every client
//
// The relay's origin allow-list doubles as the CORS origin list, so a host
// allowed to open relay sockets can also call the inspection API.
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.CORSFromOrigins(cfg.Relay.AllowedOrigins)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
