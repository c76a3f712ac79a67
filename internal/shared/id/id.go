// Package id provides ID generation for relay endpoints, frames and requests.
//
// IDs are prefixed ULIDs (prefix_ULID):
//   - Sortable: ULIDs order by creation time
//   - Debuggable: prefixes make logs readable (ep_*, frm_*, req_*)
//   - Type safe: separate string types prevent mixing endpoints and frames
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EndpointID identifies one widget connection (an embedded document's execution context)
type EndpointID string

// FrameID identifies a sandboxed frame element on a host page
type FrameID string

// RequestID identifies an HTTP request
type RequestID string

const (
	EndpointPrefix = "ep"
	FramePrefix    = "frm"
	RequestPrefix  = "req"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewEndpointID generates a new endpoint ID
func NewEndpointID() EndpointID {
	return EndpointID(Default().GenerateWithPrefix(EndpointPrefix))
}

// NewFrameID generates a new frame ID
func NewFrameID() FrameID {
	return FrameID(Default().GenerateWithPrefix(FramePrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id EndpointID) String() string { return string(id) }
func (id FrameID) String() string    { return string(id) }
func (id RequestID) String() string  { return string(id) }

// HasPrefix reports whether s is a prefixed ULID with the given prefix
func HasPrefix(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return false
	}
	_, err := ulid.Parse(rest)
	return err == nil
}
