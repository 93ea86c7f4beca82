package mcp_test

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpadapter "github.com/conneroisu/claude-control/pkg/claude/adapters/mcp"
	"github.com/conneroisu/claude-control/pkg/claude/options"
)

type echoArgs struct {
	Text string `json:"text"`
}

func TestConnectTransport_InMemory(t *testing.T) {
	ctx := context.Background()
	server := mcp.NewServer(&mcp.Implementation{Name: "echo", Version: "v0"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "echo"},
		func(_ context.Context, _ *mcp.CallToolRequest, in echoArgs) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: in.Text}}}, nil, nil
		})

	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverT, nil)
	require.NoError(t, err)
	defer ss.Close()

	session, err := mcpadapter.ConnectTransport(ctx, clientT)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"text": "hi"}})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "hi", res.Content[0].(*mcp.TextContent).Text)
}

func TestTransport_Kinds(t *testing.T) {
	tr, err := mcpadapter.Transport(&options.StdioServerConfig{Name: "s", Command: "server", Env: map[string]string{"K": "V"}})
	require.NoError(t, err)
	cmd := tr.(*mcp.CommandTransport).Command
	assert.Contains(t, cmd.Env, "K=V")

	tr, err = mcpadapter.Transport(&options.HTTPServerConfig{Name: "h", URL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "http://x", tr.(*mcp.StreamableClientTransport).Endpoint)

	tr, err = mcpadapter.Transport(&options.SSEServerConfig{Name: "e", URL: "http://y"})
	require.NoError(t, err)
	assert.Equal(t, "http://y", tr.(*mcp.SSEClientTransport).Endpoint)

	_, err = mcpadapter.Transport(&options.SDKServerConfig{Name: "sdk"})
	assert.Error(t, err)
}
