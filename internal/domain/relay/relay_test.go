package relay

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/envelope"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/frames"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/registry"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/shared/id"
)

type recordingEndpoint struct {
	id       id.EndpointID
	mu       sync.Mutex
	received []envelope.Envelope
	fail     bool
}

func newEndpoint(name string) *recordingEndpoint {
	return &recordingEndpoint{id: id.EndpointID(name)}
}

func (e *recordingEndpoint) ID() id.EndpointID { return e.id }

func (e *recordingEndpoint) Post(env envelope.Envelope) error {
	if e.fail {
		return errors.New("send buffer full")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.received = append(e.received, env)
	return nil
}

func (e *recordingEndpoint) messages() []envelope.Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]envelope.Envelope(nil), e.received...)
}

type fakeFrames struct {
	bound   map[id.EndpointID]id.FrameID
	widths  map[id.FrameID]float64
	heights map[id.FrameID]float64
}

func newFakeFrames() *fakeFrames {
	return &fakeFrames{
		bound:   map[id.EndpointID]id.FrameID{},
		widths:  map[id.FrameID]float64{},
		heights: map[id.FrameID]float64{},
	}
}

func (f *fakeFrames) Lookup(ep id.EndpointID) (id.FrameID, bool) {
	frameID, ok := f.bound[ep]
	return frameID, ok
}

func (f *fakeFrames) SetWidth(frame id.FrameID, px float64)  { f.widths[frame] = px }
func (f *fakeFrames) SetHeight(frame id.FrameID, px float64) { f.heights[frame] = px }

func raw(t *testing.T, s string) []byte {
	t.Helper()
	return []byte(s)
}

func subscribe(r *Relay, topic string, eps ...*recordingEndpoint) {
	for _, ep := range eps {
		r.HandleIncoming(envelope.Envelope{
			Type:    envelope.TypeMessage,
			Method:  envelope.MethodSubscribe,
			Payload: []byte(`{"topic":"` + topic + `"}`),
		}, ep)
	}
}

func TestSubscribeTwiceYieldsOneEntry(t *testing.T) {
	r := New(registry.New(), nil, nil)
	a := newEndpoint("a")

	subscribe(r, "chat", a, a)

	assert.Len(t, r.Registry().SubscribersOf("chat"), 1)
}

func TestPublishSkipsSender(t *testing.T) {
	r := New(registry.New(), nil, nil)
	a, b, c := newEndpoint("a"), newEndpoint("b"), newEndpoint("c")
	subscribe(r, "chat", a, b, c)

	outcome := r.HandleRaw(raw(t, `{"type":"message","method":"publish","payload":{"topic":"chat","message":{"text":"hi"}}}`), c)
	assert.Equal(t, OutcomePublished, outcome)

	for _, ep := range []*recordingEndpoint{a, b} {
		msgs := ep.messages()
		require.Len(t, msgs, 1, string(ep.id))
		assert.Equal(t, envelope.TypeMessage, msgs[0].Type)
		assert.Equal(t, envelope.MethodPublish, msgs[0].Method)
		assert.JSONEq(t, `{"topic":"chat","message":{"text":"hi"}}`, string(msgs[0].Payload))
	}
	assert.Empty(t, c.messages())
}

func TestPublishOnlyReachesTopicSubscribers(t *testing.T) {
	r := New(registry.New(), nil, nil)
	a, b, other := newEndpoint("a"), newEndpoint("b"), newEndpoint("other")
	subscribe(r, "chat", a, b)
	subscribe(r, "news", other)

	r.HandleRaw(raw(t, `{"type":"message","method":"publish","payload":{"topic":"chat","message":1}}`), a)

	assert.Len(t, b.messages(), 1)
	assert.Empty(t, other.messages())
	assert.Empty(t, a.messages())
}

func TestPublishFromNonSubscriber(t *testing.T) {
	r := New(registry.New(), nil, nil)
	a := newEndpoint("a")
	subscribe(r, "chat", a)

	r.HandleRaw(raw(t, `{"type":"message","method":"publish","payload":{"topic":"chat","message":"x"}}`), newEndpoint("outsider"))

	assert.Len(t, a.messages(), 1)
}

func TestPublishToEmptyTopic(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	r := New(registry.New(), nil, nil).WithMetrics(metrics)

	outcome := r.HandleRaw(raw(t, `{"type":"message","method":"publish","payload":{"topic":"void","message":"x"}}`), newEndpoint("a"))

	assert.Equal(t, OutcomePublished, outcome)
	assert.Zero(t, testutil.ToFloat64(metrics.Deliveries.WithLabelValues("sent")))
}

func TestPublishContinuesPastFailedDelivery(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	r := New(registry.New(), nil, nil).WithMetrics(metrics)
	a, broken, c := newEndpoint("a"), newEndpoint("broken"), newEndpoint("c")
	broken.fail = true
	subscribe(r, "chat", broken, c)

	r.HandleRaw(raw(t, `{"type":"message","method":"publish","payload":{"topic":"chat","message":"x"}}`), a)

	assert.Len(t, c.messages(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Deliveries.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Deliveries.WithLabelValues("dropped")))
}

func TestUnsubscribe(t *testing.T) {
	r := New(registry.New(), nil, nil)
	a, b := newEndpoint("a"), newEndpoint("b")
	subscribe(r, "chat", a, b)

	outcome := r.HandleRaw(raw(t, `{"type":"message","method":"unsubscribe","payload":{"topic":"chat"}}`), a)
	assert.Equal(t, OutcomeUnsubscribed, outcome)

	r.HandleRaw(raw(t, `{"type":"message","method":"publish","payload":{"topic":"chat","message":"x"}}`), b)
	assert.Empty(t, a.messages())
}

func TestUnsubscribeWhenNotSubscribed(t *testing.T) {
	r := New(registry.New(), nil, nil)
	a := newEndpoint("a")
	subscribe(r, "chat", a)

	r.HandleRaw(raw(t, `{"type":"message","method":"unsubscribe","payload":{"topic":"chat"}}`), newEndpoint("b"))
	r.HandleRaw(raw(t, `{"type":"message","method":"unsubscribe","payload":{"topic":"other"}}`), a)

	assert.Equal(t, map[string]int{"chat": 1}, r.Registry().Topics())
}

func TestResizeHeightOnly(t *testing.T) {
	fr := newFakeFrames()
	fr.bound["a"] = "frm_a"
	fr.widths["frm_a"] = 300
	r := New(registry.New(), fr, nil)

	outcome := r.HandleRaw(raw(t, `{"type":"view","method":"set","payload":{"height":200}}`), newEndpoint("a"))

	assert.Equal(t, OutcomeResized, outcome)
	assert.Equal(t, 200.0, fr.heights["frm_a"])
	assert.Equal(t, 300.0, fr.widths["frm_a"])
}

func TestResizeIgnoresZeroDimensions(t *testing.T) {
	fr := newFakeFrames()
	fr.bound["a"] = "frm_a"
	r := New(registry.New(), fr, nil)

	r.HandleRaw(raw(t, `{"type":"view","method":"set","payload":{"width":0,"height":50}}`), newEndpoint("a"))

	_, widthSet := fr.widths["frm_a"]
	assert.False(t, widthSet)
	assert.Equal(t, 50.0, fr.heights["frm_a"])
}

func TestResizeIgnoresNegativeDimensions(t *testing.T) {
	fr := newFakeFrames()
	fr.bound["a"] = "frm_a"
	fr.widths["frm_a"] = 300
	r := New(registry.New(), fr, nil)

	outcome := r.HandleRaw(raw(t, `{"type":"view","method":"set","payload":{"width":-5,"height":-0.5}}`), newEndpoint("a"))

	assert.Equal(t, OutcomeResized, outcome)
	assert.Equal(t, 300.0, fr.widths["frm_a"])
	_, heightSet := fr.heights["frm_a"]
	assert.False(t, heightSet)
}

func TestNumericTopicsStayDistinct(t *testing.T) {
	r := New(registry.New(), nil, nil)
	a, b, c := newEndpoint("a"), newEndpoint("b"), newEndpoint("c")

	r.HandleRaw(raw(t, `{"type":"message","method":"subscribe","payload":{"topic":5}}`), a)
	r.HandleRaw(raw(t, `{"type":"message","method":"subscribe","payload":{"topic":6}}`), b)
	r.HandleRaw(raw(t, `{"type":"message","method":"publish","payload":{"topic":5,"message":"x"}}`), c)

	assert.Len(t, a.messages(), 1)
	assert.Empty(t, b.messages())
	assert.Len(t, r.Registry().SubscribersOf("5"), 1)
}

func TestResizeWithoutFrame(t *testing.T) {
	fr := newFakeFrames()
	r := New(registry.New(), fr, nil)

	outcome := r.HandleRaw(raw(t, `{"type":"view","method":"set","payload":{"width":10,"height":10}}`), newEndpoint("stranger"))

	assert.Equal(t, OutcomeNoFrame, outcome)
	assert.Empty(t, fr.widths)
	assert.Empty(t, fr.heights)

	nilDir := New(registry.New(), nil, nil)
	assert.Equal(t, OutcomeNoFrame, nilDir.HandleRaw(raw(t, `{"type":"view","method":"set","payload":{"width":10}}`), newEndpoint("x")))
}

func TestResizeUpdatesDirectory(t *testing.T) {
	dir := frames.NewDirectory()
	f := dir.Register(frames.Frame{Page: "index.html", Src: "widget.html?"})
	require.NoError(t, dir.Bind(f.ID, "a"))
	r := New(registry.New(), dir, nil)

	r.HandleRaw(raw(t, `{"type":"view","method":"set","payload":{"width":320,"height":240}}`), newEndpoint("a"))

	got, ok := dir.Get(f.ID)
	require.True(t, ok)
	assert.Equal(t, 320.0, got.Width)
	assert.Equal(t, 240.0, got.Height)
}

func TestUnrecognizedEnvelopesAreDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	r := New(registry.New(), nil, nil).WithMetrics(metrics)
	a, b := newEndpoint("a"), newEndpoint("b")
	subscribe(r, "chat", a)

	tests := []struct {
		name string
		data string
		want Outcome
	}{
		{"unknown method", `{"type":"message","method":"broadcast","payload":{"topic":"chat"}}`, OutcomeIgnored},
		{"view with message method", `{"type":"view","method":"publish","payload":{"topic":"chat"}}`, OutcomeIgnored},
		{"missing type", `{"method":"subscribe","payload":{"topic":"chat"}}`, OutcomeIgnored},
		{"not json", `hello`, OutcomeMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.HandleRaw(raw(t, tt.data), b))
		})
	}

	assert.Empty(t, a.messages())
	assert.Equal(t, map[string]int{"chat": 1}, r.Registry().Topics())
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RelayMessages.WithLabelValues("other", "other", string(OutcomeIgnored))))
}

func TestDisconnect(t *testing.T) {
	r := New(registry.New(), nil, nil)
	a, b := newEndpoint("a"), newEndpoint("b")
	subscribe(r, "chat", a, b)
	subscribe(r, "news", a)

	r.Disconnect(a)

	r.HandleRaw(raw(t, `{"type":"message","method":"publish","payload":{"topic":"chat","message":"x"}}`), b)
	assert.Empty(t, a.messages())
	assert.Equal(t, map[string]int{"chat": 1, "news": 0}, r.Registry().Topics())
}

func TestConcurrentDispatch(t *testing.T) {
	r := New(registry.New(), nil, nil)
	listener := newEndpoint("listener")
	subscribe(r, "chat", listener)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ep := &recordingEndpoint{id: id.NewEndpointID()}
			subscribe(r, "chat", ep)
			r.HandleRaw([]byte(`{"type":"message","method":"publish","payload":{"topic":"chat","message":"x"}}`), ep)
		}()
	}
	wg.Wait()

	assert.Len(t, listener.messages(), 20)
	assert.Len(t, r.Registry().SubscribersOf("chat"), 21)
}
