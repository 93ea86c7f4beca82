package ports

import "context"

// MCPServer is an in-process MCP server the worker reaches through
// mcp_message control requests.
type MCPServer interface {
	// Name returns the identifier for this MCP server.
	Name() string
	// HandleMessage takes a raw JSON-RPC message and returns the raw
	// JSON-RPC response, or nil for notifications.
	HandleMessage(ctx context.Context, message []byte) ([]byte, error)
}
