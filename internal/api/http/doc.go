// Package http provides HTTP handlers for the widget relay server.
//
// Host pages are read from the pages directory and passed through the frame
// upgrader before they are served, so browsers only ever see sandboxed
// iframes. The remaining endpoints expose relay state for operators.
//
// Endpoints:
//   - Health: / and /health
//   - Pages: /pages/*path (upgraded host pages)
//   - Inspection: /topics, /frames?page=
//   - Metrics: /metrics/json (Prometheus exposition is mounted by the server)
//
// Example Usage:
//
//	handlers := http.NewHandlers(relay, directory, upgrader, cfg.Pages.Dir, logger)
//	router.GET("/pages/*path", handlers.Page)
package http
