package claude

import (
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/conneroisu/claude-control/pkg/claude/options"
)

// SDKServer builds an in-process MCP server exposing tools. Put the result
// in AgentOptions.MCPServers under the same name; the worker reaches it
// through mcp_message control requests.
func SDKServer(name, version string, tools ...mcpserver.ServerTool) *options.SDKServerConfig {
	srv := mcpserver.NewMCPServer(name, version, mcpserver.WithToolCapabilities(false))
	srv.AddTools(tools...)

	return &options.SDKServerConfig{Name: name, Instance: srv}
}

// Tool declares one SDK server tool.
func Tool(
	name, description string,
	handler mcpserver.ToolHandlerFunc,
	opts ...mcpgo.ToolOption,
) mcpserver.ServerTool {
	opts = append([]mcpgo.ToolOption{mcpgo.WithDescription(description)}, opts...)

	return mcpserver.ServerTool{Tool: mcpgo.NewTool(name, opts...), Handler: handler}
}
