// Package messages provides the domain model for everything exchanged with
// the worker process: conversation messages, content blocks, and the control
// envelopes that share the same stream.
package messages

// Message is the root of the closed set of variants the wire codec produces.
// The unexported marker keeps the set sealed to this package.
type Message interface {
	message()
}

// Meta carries the identity every conversation message is stamped with.
type Meta struct {
	// UUID identifies the message within its session.
	UUID string
	// SessionID identifies the session the message belongs to.
	SessionID string
}

func (m *Meta) meta() *Meta { return m }

type identified interface {
	meta() *Meta
}

// IdentityOf returns the session ID and UUID of a conversation message.
// Control envelopes carry no identity and return empty strings.
func IdentityOf(m Message) (sessionID, uuid string) {
	if id, ok := m.(identified); ok {
		meta := id.meta()

		return meta.SessionID, meta.UUID
	}

	return "", ""
}

// Stamp sets the session ID and UUID on a conversation message. Fields that
// are already set are left alone. It is a no-op for control envelopes.
func Stamp(m Message, sessionID, uuid string) {
	id, ok := m.(identified)
	if !ok {
		return
	}
	meta := id.meta()
	if meta.SessionID == "" {
		meta.SessionID = sessionID
	}
	if meta.UUID == "" {
		meta.UUID = uuid
	}
}

// IsControl reports whether m is a control envelope rather than content.
func IsControl(m Message) bool {
	switch m.(type) {
	case *ControlRequest, *ControlResponse, *ControlCancelRequest:
		return true
	default:
		return false
	}
}

// MessageContent is either a plain string or a list of content blocks.
type MessageContent interface {
	messageContent()
}

// StringContent is plain text content.
type StringContent string

func (StringContent) messageContent() {}

// BlocksContent is structured content.
type BlocksContent []ContentBlock

func (BlocksContent) messageContent() {}

// AssistantMessage is a model turn emitted by the worker.
type AssistantMessage struct {
	Meta
	Content         []ContentBlock
	Model           string
	ParentToolUseID *string
}

func (*AssistantMessage) message() {}

// ToolUses returns the tool_use blocks of the message in order.
func (m *AssistantMessage) ToolUses() []*ToolUseBlock {
	var uses []*ToolUseBlock
	for _, block := range m.Content {
		if use, ok := block.(*ToolUseBlock); ok {
			uses = append(uses, use)
		}
	}

	return uses
}

// UserMessage is user input, a tool result relayed to the worker, or a
// replayed message when IsReplay is set.
type UserMessage struct {
	Meta
	Content         MessageContent
	ParentToolUseID *string
	// IsReplay marks messages the worker echoes back while resuming.
	IsReplay bool
	// IsSynthetic marks messages produced by the host, not a person.
	IsSynthetic bool
}

func (*UserMessage) message() {}

// StreamEvent wraps a partial model stream event.
type StreamEvent struct {
	Meta
	// Event is the raw upstream stream event; its shape is not interpreted.
	Event           map[string]any
	ParentToolUseID *string
}

func (*StreamEvent) message() {}
