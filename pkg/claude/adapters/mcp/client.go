package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/conneroisu/claude-control/pkg/claude/options"
)

// clientImplementation identifies the host to remote MCP servers.
var clientImplementation = &mcp.Implementation{Name: "claude-control", Version: "v1.0.0"}

// Transport returns the SDK transport for an external server config.
// SDK servers have no transport and are rejected.
func Transport(cfg options.MCPServerConfig) (mcp.Transport, error) {
	switch c := cfg.(type) {
	case *options.StdioServerConfig:
		cmd := exec.Command(c.Command, c.Args...)
		cmd.Env = os.Environ()
		for k, v := range c.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}

		return &mcp.CommandTransport{Command: cmd}, nil
	case *options.SSEServerConfig:
		return &mcp.SSEClientTransport{Endpoint: c.URL}, nil
	case *options.HTTPServerConfig:
		return &mcp.StreamableClientTransport{Endpoint: c.URL}, nil
	default:
		return nil, fmt.Errorf("server %q has no client transport", cfg.GetName())
	}
}

// Connect dials an external MCP server and completes the handshake.
func Connect(ctx context.Context, cfg options.MCPServerConfig) (*mcp.ClientSession, error) {
	transport, err := Transport(cfg)
	if err != nil {
		return nil, err
	}

	return ConnectTransport(ctx, transport)
}

// ConnectTransport opens a client session over an arbitrary transport.
func ConnectTransport(ctx context.Context, transport mcp.Transport) (*mcp.ClientSession, error) {
	client := mcp.NewClient(clientImplementation, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp connect failed: %w", err)
	}

	return session, nil
}
