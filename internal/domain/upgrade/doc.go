// Package upgrade rewrites legacy <object> widget embeds into sandboxed iframes.
//
// For every <object> in document order the upgrader creates
//
//	<iframe sandbox="allow-scripts" src="{data}?{params}" class="{class}">
//
// where params are the object's <param name value> descendants encoded like
// encodeURIComponent and joined with "&". The "?" is always appended, even
// when there are no params. The iframe replaces the object in place.
//
// With a frame directory attached, each produced iframe also receives a
// generated name attribute (its frame ID) and is registered for the page.
// Widgets read window.name and pass it when opening their relay socket.
// Unnamed iframes already present on the page are registered the same way.
package upgrade
