// Package relay dispatches widget envelopes to the topic registry and frame directory.
//
// Dispatch table (exact type/method match):
//
//	message/subscribe    add sender to payload.topic
//	message/unsubscribe  remove sender from payload.topic
//	message/publish      forward {topic, message} to every other subscriber
//	view/set             resize the sender's frame (width/height when given)
//
// Anything else is dropped without a reply. Deliveries are fire-and-forget:
// a failed Post is counted and logged, never retried.
//
// Example Usage:
//
//	r := relay.New(registry.New(), directory, logger)
//	r.HandleRaw(data, endpoint)
package relay
