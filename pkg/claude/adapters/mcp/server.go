// Package mcp bridges MCP servers into the control plane. In-process
// servers answer the worker's mcp_message control requests; remote servers
// are dialed with the official SDK for host-side tool execution.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/conneroisu/claude-control/pkg/claude/ports"
)

// SDKServer adapts an in-process mcp-go server to ports.MCPServer.
type SDKServer struct {
	name   string
	server *mcpserver.MCPServer
}

var _ ports.MCPServer = (*SDKServer)(nil)

// NewSDKServer wraps srv under name.
func NewSDKServer(name string, srv *mcpserver.MCPServer) *SDKServer {
	return &SDKServer{name: name, server: srv}
}

// Name returns the identifier for this MCP server.
func (s *SDKServer) Name() string {
	return s.name
}

// HandleMessage dispatches one JSON-RPC message. Notifications yield nil.
func (s *SDKServer) HandleMessage(ctx context.Context, message []byte) ([]byte, error) {
	resp := s.server.HandleMessage(ctx, json.RawMessage(message))
	if resp == nil {
		return nil, nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal MCP response: %w", err)
	}

	return raw, nil
}
