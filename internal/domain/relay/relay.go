package relay

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/envelope"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/registry"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/shared/id"
)

// FrameDirectory locates the frame hosting an endpoint and resizes it
type FrameDirectory interface {
	Lookup(endpoint id.EndpointID) (id.FrameID, bool)
	SetWidth(frame id.FrameID, px float64)
	SetHeight(frame id.FrameID, px float64)
}

// Outcome labels what the relay did with one inbound envelope
type Outcome string

const (
	OutcomeSubscribed   Outcome = "subscribed"
	OutcomeUnsubscribed Outcome = "unsubscribed"
	OutcomePublished    Outcome = "published"
	OutcomeResized      Outcome = "resized"
	OutcomeNoFrame      Outcome = "no_frame"
	OutcomeMalformed    Outcome = "malformed"
	OutcomeIgnored      Outcome = "ignored"
)

// Relay owns the subscription registry and handles every inbound envelope
type Relay struct {
	mu       sync.Mutex // serializes dispatch
	registry *registry.Registry
	frames   FrameDirectory
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// New creates a relay over reg. frames may be nil, making every resize a no-op.
func New(reg *registry.Registry, frames FrameDirectory, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		registry: reg,
		frames:   frames,
		logger:   logger,
	}
}

// WithMetrics adds metrics tracking to the relay
func (r *Relay) WithMetrics(metrics *monitoring.Metrics) *Relay {
	r.metrics = metrics
	return r
}

// Registry exposes the relay's subscription registry for inspection
func (r *Relay) Registry() *registry.Registry {
	return r.registry
}

// HandleRaw parses a raw frame from source and dispatches it
func (r *Relay) HandleRaw(data []byte, source registry.Endpoint) Outcome {
	env, err := envelope.Parse(data)
	if err != nil {
		r.logger.Debug("dropping unparsable frame",
			zap.String("endpoint", source.ID().String()),
			zap.Error(err),
		)
		r.record("", "", OutcomeMalformed)
		return OutcomeMalformed
	}
	return r.HandleIncoming(env, source)
}

// HandleIncoming dispatches one envelope sent by source
func (r *Relay) HandleIncoming(env envelope.Envelope, source registry.Endpoint) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcome := r.dispatch(env, source)
	r.record(string(env.Type), string(env.Method), outcome)
	return outcome
}

// Disconnect removes source from every topic it subscribed to
func (r *Relay) Disconnect(source registry.Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := r.registry.Drop(source)
	r.logger.Debug("endpoint disconnected",
		zap.String("endpoint", source.ID().String()),
		zap.Strings("topics", topics),
	)
	r.updateSubscriptions()
}

func (r *Relay) dispatch(env envelope.Envelope, source registry.Endpoint) Outcome {
	cmd, err := envelope.Decode(env)
	if err != nil {
		r.logger.Debug("ignoring envelope",
			zap.String("endpoint", source.ID().String()),
			zap.String("type", string(env.Type)),
			zap.String("method", string(env.Method)),
		)
		return OutcomeIgnored
	}

	switch c := cmd.(type) {
	case envelope.Subscribe:
		r.registry.Subscribe(c.Topic, source)
		r.updateSubscriptions()
		return OutcomeSubscribed
	case envelope.Unsubscribe:
		r.registry.Unsubscribe(c.Topic, source)
		r.updateSubscriptions()
		return OutcomeUnsubscribed
	case envelope.Publish:
		r.broadcast(source, c.Topic, c.Message)
		return OutcomePublished
	case envelope.Resize:
		return r.resize(source, c)
	}
	return OutcomeIgnored
}

// broadcast delivers message to every subscriber of topic except source
func (r *Relay) broadcast(source registry.Endpoint, topic string, message json.RawMessage) {
	out := envelope.NewPublish(topic, message)

	for _, ep := range r.registry.SubscribersOf(topic) {
		if ep.ID() == source.ID() {
			continue
		}
		if err := ep.Post(out); err != nil {
			r.logger.Debug("delivery failed",
				zap.String("topic", topic),
				zap.String("endpoint", ep.ID().String()),
				zap.Error(err),
			)
			r.recordDelivery("dropped")
			continue
		}
		r.recordDelivery("sent")
	}
}

// resize applies the given dimensions to the frame hosting source.
// Absent, zero and negative dimensions leave the frame unchanged.
func (r *Relay) resize(source registry.Endpoint, c envelope.Resize) Outcome {
	if r.frames == nil {
		return OutcomeNoFrame
	}
	frameID, ok := r.frames.Lookup(source.ID())
	if !ok {
		return OutcomeNoFrame
	}

	if c.Width != nil && *c.Width > 0 {
		r.frames.SetWidth(frameID, *c.Width)
	}
	if c.Height != nil && *c.Height > 0 {
		r.frames.SetHeight(frameID, *c.Height)
	}
	return OutcomeResized
}

func (r *Relay) record(typ, method string, outcome Outcome) {
	if r.metrics == nil {
		return
	}
	// type/method come from widgets; keep label cardinality bounded
	if outcome == OutcomeIgnored || outcome == OutcomeMalformed {
		typ, method = "other", "other"
	}
	r.metrics.RecordRelayMessage(typ, method, string(outcome))
}

func (r *Relay) recordDelivery(status string) {
	if r.metrics != nil {
		r.metrics.RecordDelivery(status)
	}
}

func (r *Relay) updateSubscriptions() {
	if r.metrics != nil {
		r.metrics.SetSubscriptions(r.registry.Subscriptions())
	}
}
