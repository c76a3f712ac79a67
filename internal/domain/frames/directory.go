package frames

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/widgetrelay/backend/internal/shared/id"
)

// ErrUnknownFrame is returned when binding to a frame that was never registered
var ErrUnknownFrame = errors.New("unknown frame")

// Frame describes a sandboxed frame element on a host page
type Frame struct {
	ID        id.FrameID    `json:"id"`
	Page      string        `json:"page"`
	Src       string        `json:"src"`
	Class     string        `json:"class,omitempty"`
	Sandbox   string        `json:"sandbox"`
	Width     float64       `json:"width,omitempty"`  // rendered width in px, 0 if never set
	Height    float64       `json:"height,omitempty"` // rendered height in px, 0 if never set
	Endpoint  id.EndpointID `json:"endpoint,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Directory is an in-memory index of frames and the endpoints bound to them
type Directory struct {
	mu       sync.RWMutex
	frames   map[id.FrameID]*Frame        // Protected by mu
	bindings map[id.EndpointID]id.FrameID // Protected by mu

	watchMu  sync.Mutex
	watchers map[int]chan Frame // Protected by watchMu
	nextWID  int
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{
		frames:   make(map[id.FrameID]*Frame),
		bindings: make(map[id.EndpointID]id.FrameID),
		watchers: make(map[int]chan Frame),
	}
}

// Register adds a frame, assigning an ID when it has none.
// Registering an existing ID replaces its description but keeps its binding.
func (d *Directory) Register(f Frame) Frame {
	if f.ID == "" {
		f.ID = id.NewFrameID()
	}
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.frames[f.ID]; ok {
		f.Endpoint = existing.Endpoint
		f.CreatedAt = existing.CreatedAt
	}
	stored := f
	d.frames[f.ID] = &stored
	return stored
}

// Bind associates a widget endpoint with its frame
func (d *Directory) Bind(frameID id.FrameID, endpointID id.EndpointID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.frames[frameID]
	if !ok {
		return ErrUnknownFrame
	}
	if f.Endpoint != "" && f.Endpoint != endpointID {
		delete(d.bindings, f.Endpoint)
	}
	f.Endpoint = endpointID
	f.UpdatedAt = time.Now()
	d.bindings[endpointID] = frameID
	return nil
}

// Unbind forgets the endpoint's frame association
func (d *Directory) Unbind(endpointID id.EndpointID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	frameID, ok := d.bindings[endpointID]
	if !ok {
		return
	}
	delete(d.bindings, endpointID)
	if f, ok := d.frames[frameID]; ok && f.Endpoint == endpointID {
		f.Endpoint = ""
		f.UpdatedAt = time.Now()
	}
}

// Lookup finds the frame whose content is the given endpoint
func (d *Directory) Lookup(endpointID id.EndpointID) (id.FrameID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	frameID, ok := d.bindings[endpointID]
	return frameID, ok
}

// SetWidth sets the frame's rendered width in pixels
func (d *Directory) SetWidth(frameID id.FrameID, px float64) {
	d.update(frameID, func(f *Frame) { f.Width = px })
}

// SetHeight sets the frame's rendered height in pixels
func (d *Directory) SetHeight(frameID id.FrameID, px float64) {
	d.update(frameID, func(f *Frame) { f.Height = px })
}

func (d *Directory) update(frameID id.FrameID, apply func(*Frame)) {
	d.mu.Lock()
	f, ok := d.frames[frameID]
	if !ok {
		d.mu.Unlock()
		return
	}
	apply(f)
	f.UpdatedAt = time.Now()
	snapshot := *f
	d.mu.Unlock()

	d.notify(snapshot)
}

// Get returns a copy of the frame
func (d *Directory) Get(frameID id.FrameID) (Frame, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	f, ok := d.frames[frameID]
	if !ok {
		return Frame{}, false
	}
	return *f, true
}

// List returns frames on page ordered by creation, or every frame when page is empty
func (d *Directory) List(page string) []Frame {
	d.mu.RLock()
	out := make([]Frame, 0, len(d.frames))
	for _, f := range d.frames {
		if page == "" || f.Page == page {
			out = append(out, *f)
		}
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Prune removes frames with no bound endpoint that have not changed since before cutoff.
// It returns the number of frames removed.
func (d *Directory) Prune(cutoff time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for frameID, f := range d.frames {
		if f.Endpoint == "" && f.UpdatedAt.Before(cutoff) {
			delete(d.frames, frameID)
			removed++
		}
	}
	return removed
}

// Watch subscribes to frame size changes. The returned cancel func closes the channel.
func (d *Directory) Watch(buffer int) (<-chan Frame, func()) {
	ch := make(chan Frame, buffer)

	d.watchMu.Lock()
	wid := d.nextWID
	d.nextWID++
	d.watchers[wid] = ch
	d.watchMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			d.watchMu.Lock()
			delete(d.watchers, wid)
			d.watchMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (d *Directory) notify(f Frame) {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()

	for _, ch := range d.watchers {
		select {
		case ch <- f:
		default:
		}
	}
}
