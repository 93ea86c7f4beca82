package options

import mcpserver "github.com/mark3labs/mcp-go/server"

// MCPServerConfig is the interface for all MCP server configurations.
type MCPServerConfig interface {
	mcpServerConfig()
	// GetName returns the server identifier for routing.
	GetName() string
	// Wire returns the entry written into --mcp-config.
	Wire() map[string]any
}

// StdioServerConfig configures an external MCP server spawned by the worker.
type StdioServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

func (*StdioServerConfig) mcpServerConfig()  {}
func (c *StdioServerConfig) GetName() string { return c.Name }

// Wire implements MCPServerConfig.
func (c *StdioServerConfig) Wire() map[string]any {
	entry := map[string]any{"type": "stdio", "command": c.Command}
	if len(c.Args) > 0 {
		entry["args"] = c.Args
	}
	if len(c.Env) > 0 {
		entry["env"] = c.Env
	}

	return entry
}

// SSEServerConfig configures an external MCP server reached over SSE.
type SSEServerConfig struct {
	Name    string
	URL     string
	Headers map[string]string
}

func (*SSEServerConfig) mcpServerConfig()  {}
func (c *SSEServerConfig) GetName() string { return c.Name }

// Wire implements MCPServerConfig.
func (c *SSEServerConfig) Wire() map[string]any {
	return remoteEntry("sse", c.URL, c.Headers)
}

// HTTPServerConfig configures an external MCP server reached over
// streamable HTTP.
type HTTPServerConfig struct {
	Name    string
	URL     string
	Headers map[string]string
}

func (*HTTPServerConfig) mcpServerConfig()  {}
func (c *HTTPServerConfig) GetName() string { return c.Name }

// Wire implements MCPServerConfig.
func (c *HTTPServerConfig) Wire() map[string]any {
	return remoteEntry("http", c.URL, c.Headers)
}

// SDKServerConfig configures an in-process MCP server. The worker reaches
// it through mcp_message control requests instead of a transport.
type SDKServerConfig struct {
	Name     string
	Instance *mcpserver.MCPServer
}

func (*SDKServerConfig) mcpServerConfig()  {}
func (c *SDKServerConfig) GetName() string { return c.Name }

// Wire implements MCPServerConfig.
func (c *SDKServerConfig) Wire() map[string]any {
	return map[string]any{"type": "sdk", "name": c.Name}
}

func remoteEntry(kind, url string, headers map[string]string) map[string]any {
	entry := map[string]any{"type": kind, "url": url}
	if len(headers) > 0 {
		entry["headers"] = headers
	}

	return entry
}
