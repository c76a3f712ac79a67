package frames

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/widgetrelay/backend/internal/shared/id"
)

func TestRegisterAssignsID(t *testing.T) {
	d := NewDirectory()

	f := d.Register(Frame{Page: "index.html", Src: "widget.html?"})

	assert.True(t, id.HasPrefix(string(f.ID), id.FramePrefix))
	got, ok := d.Get(f.ID)
	require.True(t, ok)
	assert.Equal(t, "widget.html?", got.Src)
}

func TestBindAndLookup(t *testing.T) {
	d := NewDirectory()
	f := d.Register(Frame{ID: "frm_a", Page: "index.html"})

	require.NoError(t, d.Bind(f.ID, "ep_1"))

	frameID, ok := d.Lookup("ep_1")
	require.True(t, ok)
	assert.Equal(t, f.ID, frameID)

	got, _ := d.Get(f.ID)
	assert.Equal(t, id.EndpointID("ep_1"), got.Endpoint)
}

func TestBindUnknownFrame(t *testing.T) {
	d := NewDirectory()

	err := d.Bind("frm_missing", "ep_1")
	assert.ErrorIs(t, err, ErrUnknownFrame)

	_, ok := d.Lookup("ep_1")
	assert.False(t, ok)
}

func TestRebindReplacesPreviousEndpoint(t *testing.T) {
	d := NewDirectory()
	d.Register(Frame{ID: "frm_a"})

	require.NoError(t, d.Bind("frm_a", "ep_old"))
	require.NoError(t, d.Bind("frm_a", "ep_new"))

	_, ok := d.Lookup("ep_old")
	assert.False(t, ok)
	frameID, ok := d.Lookup("ep_new")
	assert.True(t, ok)
	assert.Equal(t, id.FrameID("frm_a"), frameID)
}

func TestUnbind(t *testing.T) {
	d := NewDirectory()
	d.Register(Frame{ID: "frm_a"})
	require.NoError(t, d.Bind("frm_a", "ep_1"))

	d.Unbind("ep_1")
	d.Unbind("ep_never")

	_, ok := d.Lookup("ep_1")
	assert.False(t, ok)
	got, _ := d.Get("frm_a")
	assert.Empty(t, got.Endpoint)
}

func TestSetSize(t *testing.T) {
	d := NewDirectory()
	d.Register(Frame{ID: "frm_a"})

	d.SetHeight("frm_a", 200)
	got, _ := d.Get("frm_a")
	assert.Equal(t, 200.0, got.Height)
	assert.Zero(t, got.Width)

	d.SetWidth("frm_a", 320)
	got, _ = d.Get("frm_a")
	assert.Equal(t, 320.0, got.Width)
	assert.Equal(t, 200.0, got.Height)
}

func TestSetSizeUnknownFrameIsNoop(t *testing.T) {
	d := NewDirectory()
	ch, cancel := d.Watch(1)
	defer cancel()

	d.SetWidth("frm_missing", 10)

	select {
	case f := <-ch:
		t.Fatalf("unexpected notification for %s", f.ID)
	default:
	}
}

func TestList(t *testing.T) {
	d := NewDirectory()
	d.Register(Frame{ID: "frm_1", Page: "a.html"})
	time.Sleep(time.Millisecond)
	d.Register(Frame{ID: "frm_2", Page: "b.html"})
	time.Sleep(time.Millisecond)
	d.Register(Frame{ID: "frm_3", Page: "a.html"})

	page := d.List("a.html")
	require.Len(t, page, 2)
	assert.Equal(t, id.FrameID("frm_1"), page[0].ID)
	assert.Equal(t, id.FrameID("frm_3"), page[1].ID)

	assert.Len(t, d.List(""), 3)
}

func TestWatch(t *testing.T) {
	d := NewDirectory()
	d.Register(Frame{ID: "frm_a", Page: "index.html"})
	ch, cancel := d.Watch(4)

	d.SetHeight("frm_a", 120)

	select {
	case f := <-ch:
		assert.Equal(t, id.FrameID("frm_a"), f.ID)
		assert.Equal(t, 120.0, f.Height)
	case <-time.After(time.Second):
		t.Fatal("expected a resize notification")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestWatchDoesNotBlockOnSlowWatcher(t *testing.T) {
	d := NewDirectory()
	d.Register(Frame{ID: "frm_a"})
	_, cancel := d.Watch(0)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.SetWidth("frm_a", float64(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("resize blocked on an unread watcher")
	}
}

func TestPrune(t *testing.T) {
	d := NewDirectory()
	d.Register(Frame{ID: "frm_idle"})
	d.Register(Frame{ID: "frm_bound"})
	require.NoError(t, d.Bind("frm_bound", "ep_1"))

	removed := d.Prune(time.Now().Add(time.Minute))

	assert.Equal(t, 1, removed)
	_, ok := d.Get("frm_idle")
	assert.False(t, ok)
	_, ok = d.Get("frm_bound")
	assert.True(t, ok)
}

func TestPruneKeepsRecentFrames(t *testing.T) {
	d := NewDirectory()
	d.Register(Frame{ID: "frm_new"})

	assert.Zero(t, d.Prune(time.Now().Add(-time.Minute)))
	assert.Len(t, d.List(""), 1)
}
