// Package ports defines interfaces that the domain needs from infrastructure.
// These are "ports" in hexagonal architecture - contracts defined by
// domain needs, not by external systems.
package ports

import "github.com/conneroisu/claude-control/pkg/claude/messages"

// Codec converts between wire lines and domain messages.
//
// Decode must reject unknown message types with an error instead of
// returning a placeholder, and Encode must produce exactly one JSON object
// terminated by a newline.
type Codec interface {
	Encode(m messages.Message) ([]byte, error)
	Decode(line []byte) (messages.Message, error)
}
