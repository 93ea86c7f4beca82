package messages

// ContentBlock is a sealed union of the block kinds a message can carry.
type ContentBlock interface {
	contentBlock()
}

// TextBlock represents plain text content.
type TextBlock struct {
	Text string
}

func (*TextBlock) contentBlock() {}

// ThinkingBlock represents model reasoning when extended thinking is enabled.
type ThinkingBlock struct {
	Thinking  string
	Signature string
}

func (*ThinkingBlock) contentBlock() {}

// ToolUseBlock represents a tool invocation proposed by the model.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any
}

func (*ToolUseBlock) contentBlock() {}

// ToolResultBlock carries a tool's output back to the worker.
type ToolResultBlock struct {
	ToolUseID string
	Content   ToolResultContent
	IsError   bool
}

func (*ToolResultBlock) contentBlock() {}

// ToolResultContent is either plain text or a list of blocks.
type ToolResultContent interface {
	toolResultContent()
}

// ToolResultString is a plain text tool result.
type ToolResultString string

func (ToolResultString) toolResultContent() {}

// ToolResultBlocks is a structured tool result.
type ToolResultBlocks []ContentBlock

func (ToolResultBlocks) toolResultContent() {}

// NewToolResult builds the user message that answers a tool invocation.
func NewToolResult(toolUseID, text string, isError bool) *UserMessage {
	return &UserMessage{
		Content: BlocksContent{
			&ToolResultBlock{
				ToolUseID: toolUseID,
				Content:   ToolResultString(text),
				IsError:   isError,
			},
		},
		ParentToolUseID: nil,
		IsSynthetic:     true,
	}
}
