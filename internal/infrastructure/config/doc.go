// Package config provides 12-factor configuration management for the relay service.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional .env file can seed the environment first (see LoadDotenv).
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Relay: socket origin allow-list and per-connection limits
//   - Pages: host page and widget asset directories
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - RELAY_ALLOWED_ORIGINS, RELAY_SEND_BUFFER, RELAY_MAX_MESSAGE_BYTES, RELAY_FRAME_TTL
//   - PAGES_DIR, WIDGETS_DIR
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
