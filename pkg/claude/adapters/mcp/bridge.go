package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/options"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
)

// JSON-RPC error codes used in synthesized responses.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// Bridge routes mcp_message payloads to in-process servers by name.
type Bridge struct {
	servers map[string]ports.MCPServer
	logger  *zap.Logger
}

// NewBridge creates a bridge over servers.
func NewBridge(logger *zap.Logger, servers ...ports.MCPServer) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		servers: make(map[string]ports.MCPServer, len(servers)),
		logger:  logger.Named("mcp"),
	}
	for _, s := range servers {
		b.servers[s.Name()] = s
	}

	return b
}

// FromOptions builds a bridge over every SDK server in configs.
func FromOptions(logger *zap.Logger, configs map[string]options.MCPServerConfig) *Bridge {
	var servers []ports.MCPServer
	for name, cfg := range configs {
		if sdk, ok := cfg.(*options.SDKServerConfig); ok && sdk.Instance != nil {
			servers = append(servers, NewSDKServer(name, sdk.Instance))
		}
	}

	return NewBridge(logger, servers...)
}

// Len reports how many servers are routed.
func (b *Bridge) Len() int {
	return len(b.servers)
}

// Handle delivers message to serverName and returns the JSON-RPC response.
// Routing failures are reported as JSON-RPC errors, not Go errors, so the
// worker sees them in-band.
func (b *Bridge) Handle(ctx context.Context, serverName string, message map[string]any) map[string]any {
	id := message["id"]
	server, ok := b.servers[serverName]
	if !ok {
		b.logger.Warn("mcp_message for unknown server", zap.String("server", serverName))

		return errorResponse(id, codeMethodNotFound, fmt.Sprintf("Server '%s' not found", serverName))
	}

	raw, err := json.Marshal(message)
	if err != nil {
		return errorResponse(id, codeParseError, err.Error())
	}
	out, err := server.HandleMessage(ctx, raw)
	if err != nil {
		b.logger.Warn("mcp server failed",
			zap.String("server", serverName),
			zap.Error(err),
		)

		return errorResponse(id, codeInternalError, err.Error())
	}
	if out == nil {
		return map[string]any{"jsonrpc": "2.0", "result": map[string]any{}, "id": id}
	}

	var resp map[string]any
	if err := json.Unmarshal(out, &resp); err != nil {
		return errorResponse(id, codeInternalError, fmt.Sprintf("invalid response from server: %v", err))
	}

	return resp
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
