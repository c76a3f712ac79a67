// Package frames keeps track of the sandboxed frames rendered on host pages.
//
// The directory answers one question for the relay: which frame belongs to the
// widget connection that just sent a message. Widgets bind their connection to
// a frame ID (carried in the iframe's name attribute) when they connect.
//
// Resizes are pushed to watchers so host documents can apply them. A watcher
// that does not keep up misses updates instead of blocking the relay.
package frames
