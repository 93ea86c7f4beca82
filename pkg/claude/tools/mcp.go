package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/conneroisu/claude-control/pkg/claude/ports"
)

const mcpPrefix = "mcp__"

// MCPToolName returns the name the worker uses for tool on server.
func MCPToolName(server, tool string) string {
	return mcpPrefix + server + "__" + tool
}

// ParseMCPToolName splits "mcp__<server>__<tool>".
func ParseMCPToolName(name string) (server, tool string, ok bool) {
	rest, ok := strings.CutPrefix(name, mcpPrefix)
	if !ok {
		return "", "", false
	}
	server, tool, ok = strings.Cut(rest, "__")
	if !ok || server == "" || tool == "" {
		return "", "", false
	}

	return server, tool, true
}

// MCPExecutor runs mcp__<server>__<tool> invocations on an MCP client
// session.
type MCPExecutor struct {
	Server  string
	Session *mcp.ClientSession
}

var _ ports.ToolExecutor = (*MCPExecutor)(nil)

// Execute implements ports.ToolExecutor.
func (e *MCPExecutor) Execute(ctx context.Context, call ports.ToolCall) (ports.ToolResult, error) {
	_, tool, ok := ParseMCPToolName(call.ToolName)
	if !ok {
		tool = call.ToolName
	}
	res, err := e.Session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tool,
		Arguments: call.Input,
	})
	if err != nil {
		return ports.ToolResult{}, err
	}

	return ports.ToolResult{Content: contentText(res), IsError: res.IsError}, nil
}

func contentText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) == 0 && res.StructuredContent != nil {
		if data, err := json.Marshal(res.StructuredContent); err == nil {
			parts = append(parts, string(data))
		}
	}

	return strings.Join(parts, "\n")
}
