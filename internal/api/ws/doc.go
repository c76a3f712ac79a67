// Package ws provides the WebSocket transport between widgets, host pages and the relay.
//
// Widgets connect to /relay and become relay endpoints. Each connection has a
// buffered outbound queue drained by a single writer goroutine; when the queue
// is full a delivery is dropped rather than blocking the relay.
//
// Routes:
//   - GET /relay?frame={frameID}: widget socket. The frame ID is the iframe's
//     name attribute (window.name inside the widget). Every text frame is an
//     envelope handed to the relay.
//   - GET /host?page={path}: host observer socket. Receives view/set envelopes
//     whenever a frame on that page is resized.
//
// Example Usage:
//
//	handler := ws.NewHandler(relay, directory, cfg.Relay, logger)
//	router.GET("/relay", handler.HandleWidget)
//	router.GET("/host", handler.HandleHost)
package ws
