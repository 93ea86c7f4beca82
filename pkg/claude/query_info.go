package claude

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// SupportedCommands returns the worker's slash commands.
func (c *Client) SupportedCommands(ctx context.Context) ([]SlashCommand, error) {
	var commands []SlashCommand
	if err := c.query(ctx, messages.SubtypeSupportedCommands, "commands", &commands); err != nil {
		return nil, err
	}

	return commands, nil
}

// SupportedModels returns the models the worker can switch to.
func (c *Client) SupportedModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	if err := c.query(ctx, messages.SubtypeSupportedModels, "models", &models); err != nil {
		return nil, err
	}

	return models, nil
}

// MCPStatus returns the connection status of each MCP server.
func (c *Client) MCPStatus(ctx context.Context) ([]MCPServerStatus, error) {
	var servers []MCPServerStatus
	if err := c.query(ctx, messages.SubtypeMCPStatus, "mcpServers", &servers); err != nil {
		return nil, err
	}

	return servers, nil
}

// AccountInfo returns the account behind the worker's credentials.
func (c *Client) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.query(ctx, messages.SubtypeAccountInfo, "account", &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// ServerInfo returns the worker's initialize response.
func (c *Client) ServerInfo() (map[string]any, error) {
	ctrl, err := c.controller()
	if err != nil {
		return nil, err
	}

	return ctrl.InitResponse(), nil
}

// query sends a payload-less control request and decodes field of the
// response into out. A missing field leaves out untouched.
func (c *Client) query(ctx context.Context, subtype, field string, out any) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}
	resp, err := ctrl.Control(ctx, subtype, nil)
	if err != nil {
		return err
	}
	raw, ok := resp[field]
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return clauderrs.NewProtocolError(
			clauderrs.ErrCodeMessageParseFailed,
			fmt.Sprintf("failed to marshal %s data", field),
			err,
		).WithSessionID(ctrl.SessionID()).WithMessageType("control_response")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return clauderrs.NewProtocolError(
			clauderrs.ErrCodeMessageParseFailed,
			fmt.Sprintf("failed to parse %s data", field),
			err,
		).WithSessionID(ctrl.SessionID()).WithMessageType("control_response")
	}

	return nil
}
