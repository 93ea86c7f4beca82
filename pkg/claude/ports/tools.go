package ports

import "context"

// ToolCall is an approved invocation handed to a ToolExecutor.
type ToolCall struct {
	ToolName  string
	ToolUseID string
	Input     map[string]any
	SessionID string
}

// ToolResult is the output relayed back to the worker.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolExecutor runs one tool. Cancellation of ctx is the executor's own
// contract; the controller never kills a running tool.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (ToolResult, error)
}

// ToolExecutorFunc adapts a function to ToolExecutor.
type ToolExecutorFunc func(ctx context.Context, call ToolCall) (ToolResult, error)

// Execute implements ToolExecutor.
func (f ToolExecutorFunc) Execute(ctx context.Context, call ToolCall) (ToolResult, error) {
	return f(ctx, call)
}
