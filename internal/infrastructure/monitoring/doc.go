/*
Package monitoring provides Prometheus metrics for the relay service.

# Overview

Metrics are registered on the Registerer passed to NewMetrics, so tests and
multiple servers in one process never collide on the default registry.

# Metrics

- HTTP request metrics (latency, throughput, size)
- Relay envelopes by type, method and outcome
- Publish deliveries (sent or dropped)
- Active subscriptions
- WebSocket connections by role and frame counts
- Frames produced by the upgrader

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
