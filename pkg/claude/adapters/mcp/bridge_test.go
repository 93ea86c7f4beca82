package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/claude-control/pkg/claude/adapters/mcp"
	"github.com/conneroisu/claude-control/pkg/claude/options"
)

func calculator() *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer("calc", "1.0.0", mcpserver.WithToolCapabilities(false))
	srv.AddTool(
		mcpgo.NewTool("add",
			mcpgo.WithDescription("add two numbers"),
			mcpgo.WithNumber("a", mcpgo.Required()),
			mcpgo.WithNumber("b", mcpgo.Required()),
		),
		func(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			a, err := req.RequireFloat("a")
			if err != nil {
				return mcpgo.NewToolResultError(err.Error()), nil
			}
			b, err := req.RequireFloat("b")
			if err != nil {
				return mcpgo.NewToolResultError(err.Error()), nil
			}

			return mcpgo.NewToolResultText(fmt.Sprintf("%g", a+b)), nil
		},
	)

	return srv
}

func TestBridge_RoutesToSDKServer(t *testing.T) {
	bridge := mcp.FromOptions(nil, map[string]options.MCPServerConfig{
		"calc": &options.SDKServerConfig{Name: "calc", Instance: calculator()},
		"web":  &options.HTTPServerConfig{Name: "web", URL: "http://localhost:1"},
	})
	require.Equal(t, 1, bridge.Len())

	resp := bridge.Handle(context.Background(), "calc", map[string]any{
		"jsonrpc": "2.0",
		"id":      float64(7),
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "add",
			"arguments": map[string]any{"a": 2, "b": 3},
		},
	})

	assert.Equal(t, float64(7), resp["id"])
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "response: %v", resp)
	content := result["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "5", content[0].(map[string]any)["text"])
}

func TestBridge_ListTools(t *testing.T) {
	bridge := mcp.NewBridge(nil, mcp.NewSDKServer("calc", calculator()))
	resp := bridge.Handle(context.Background(), "calc", map[string]any{
		"jsonrpc": "2.0", "id": "a", "method": "tools/list",
	})

	raw, err := json.Marshal(resp["result"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"add"`)
}

func TestBridge_UnknownServer(t *testing.T) {
	bridge := mcp.NewBridge(nil)
	resp := bridge.Handle(context.Background(), "nope", map[string]any{"jsonrpc": "2.0", "id": 1, "method": "tools/list"})

	errObj, ok := resp["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, -32601, errObj["code"])
	assert.Contains(t, errObj["message"], "nope")
}

type failingServer struct{}

func (failingServer) Name() string { return "broken" }
func (failingServer) HandleMessage(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("exploded")
}

func TestBridge_ServerErrorIsInBand(t *testing.T) {
	bridge := mcp.NewBridge(nil, failingServer{})
	resp := bridge.Handle(context.Background(), "broken", map[string]any{"jsonrpc": "2.0", "id": 1, "method": "x"})

	errObj := resp["error"].(map[string]any)
	assert.Equal(t, -32603, errObj["code"])
	assert.Equal(t, "exploded", errObj["message"])
}

func TestBridge_NotificationYieldsEmptyResult(t *testing.T) {
	bridge := mcp.NewBridge(nil, mcp.NewSDKServer("calc", calculator()))
	resp := bridge.Handle(context.Background(), "calc", map[string]any{
		"jsonrpc": "2.0", "method": "notifications/initialized",
	})

	assert.Equal(t, map[string]any{}, resp["result"])
}
