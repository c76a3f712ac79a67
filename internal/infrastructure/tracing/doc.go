/*
Package tracing provides lightweight request tracing for the relay's HTTP surface.

Every request gets a span whose trace ID is taken from the X-Trace-ID header or
generated as a request ULID. Trace and span IDs are echoed in the response
headers. Finished spans are logged asynchronously through zap; when the buffer
is full, spans are dropped with a warning.

# Usage

	tracer := tracing.New("relay", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))
*/
package tracing
