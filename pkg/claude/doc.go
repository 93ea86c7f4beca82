// Package claude is the entry point of the control plane.
//
// Query runs one prompt against a freshly spawned worker and streams its
// messages. Client keeps a worker alive across turns and exposes the
// outbound control calls. Both wire the same pieces: a settings snapshot
// feeding the permission arbiter, the hook dispatcher, the tool registry,
// in-process MCP servers and the session store.
package claude
