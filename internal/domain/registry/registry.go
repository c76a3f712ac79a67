package registry

import (
	"sync"

	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/envelope"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/shared/id"
)

// Endpoint is a widget execution context: a subscriber identity and a delivery target
type Endpoint interface {
	ID() id.EndpointID
	// Post delivers an envelope without waiting for the widget. It must not block.
	Post(env envelope.Envelope) error
}

// Registry maps topic names to their subscribers
type Registry struct {
	mu     sync.RWMutex
	topics map[string][]Endpoint // Protected by mu
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		topics: make(map[string][]Endpoint),
	}
}

// Subscribe adds endpoint to topic unless it is already subscribed
func (r *Registry) Subscribe(topic string, endpoint Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.topics[topic]
	if indexOf(subs, endpoint.ID()) >= 0 {
		return
	}
	r.topics[topic] = append(subs, endpoint)
}

// Unsubscribe removes endpoint from topic if present
func (r *Registry) Unsubscribe(topic string, endpoint Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.topics[topic]
	if !ok {
		return
	}
	if i := indexOf(subs, endpoint.ID()); i >= 0 {
		r.topics[topic] = append(subs[:i:i], subs[i+1:]...)
	}
}

// SubscribersOf returns a snapshot of topic's subscribers.
// Unknown topics yield an empty slice.
func (r *Registry) SubscribersOf(topic string) []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.topics[topic]
	out := make([]Endpoint, len(subs))
	copy(out, subs)
	return out
}

// Drop removes endpoint from every topic and returns the topics it left
func (r *Registry) Drop(endpoint Endpoint) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []string
	for topic, subs := range r.topics {
		if i := indexOf(subs, endpoint.ID()); i >= 0 {
			r.topics[topic] = append(subs[:i:i], subs[i+1:]...)
			left = append(left, topic)
		}
	}
	return left
}

// Topics returns subscriber counts per known topic, including empty ones
func (r *Registry) Topics() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.topics))
	for topic, subs := range r.topics {
		counts[topic] = len(subs)
	}
	return counts
}

// Subscriptions returns the total number of (topic, endpoint) entries
func (r *Registry) Subscriptions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, subs := range r.topics {
		total += len(subs)
	}
	return total
}

func indexOf(subs []Endpoint, epID id.EndpointID) int {
	for i, ep := range subs {
		if ep.ID() == epID {
			return i
		}
	}
	return -1
}
