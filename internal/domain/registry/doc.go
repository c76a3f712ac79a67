// Package registry tracks which widget endpoints are subscribed to which topics.
//
// A topic is created implicitly by its first subscription and is never pruned:
// a topic whose last subscriber left behaves exactly like one that never
// existed. Each (topic, endpoint) pair is stored at most once and subscribers
// are kept in first-subscription order.
//
// Endpoints are compared by ID only. The registry never owns an endpoint's
// lifecycle; callers Drop an endpoint when its connection goes away.
//
// Example Usage:
//
//	reg := registry.New()
//	reg.Subscribe("chat", endpoint)
//	for _, ep := range reg.SubscribersOf("chat") {
//		...
//	}
package registry
