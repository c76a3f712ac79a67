// Package main is the entry point for the widget relay server.
//
// The server hosts pages that embed sandboxed widgets and relays topic
// messages between those widgets over WebSockets.
//
// Architecture:
//
//	Browser host page ← /pages (objects upgraded to iframes)
//	Widget iframe     ↔ /relay (subscribe, unsubscribe, publish, resize)
//	Host page         ← /host  (frame resize notifications)
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -pages ./pages -widgets ./widgets
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
