package claude

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	mcpadapter "github.com/conneroisu/claude-control/pkg/claude/adapters/mcp"
	"github.com/conneroisu/claude-control/pkg/claude/options"
	"github.com/conneroisu/claude-control/pkg/claude/tools"
)

// connectMCP dials every external MCP server and routes its tools through
// the registry. SDK servers are reached through the bridge instead.
func (s *liveSession) connectMCP(
	ctx context.Context,
	configs map[string]options.MCPServerConfig,
	registry *tools.Registry,
) error {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, sdk := configs[name].(*options.SDKServerConfig); sdk {
			continue
		}
		remote, err := mcpadapter.Connect(ctx, configs[name])
		if err != nil {
			return fmt.Errorf("connect MCP server %q: %w", name, err)
		}
		s.remotes = append(s.remotes, remote)
		registry.RegisterMCP(name, &tools.MCPExecutor{Server: name, Session: remote})
		s.logger.Debug("mcp server connected", zap.String("server", name))
	}

	return nil
}
