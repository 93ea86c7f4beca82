package querying

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/adapters/jsonrpc"
	"github.com/conneroisu/claude-control/pkg/claude/adapters/parse"
	"github.com/conneroisu/claude-control/pkg/claude/hooking"
	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/options"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// handleHookCallback runs the hook the worker names by callback ID. The
// worker triggers every event except PreToolUse and PostToolUse this way.
func (c *Controller) handleHookCallback(ctx context.Context, req *messages.ControlRequest) (map[string]any, error) {
	body, err := parse.HookCallback(req)
	if err != nil {
		return nil, err
	}
	input, err := hooking.DecodeInput(body.Input)
	if err != nil {
		return nil, err
	}
	out, err := c.hooks.Invoke(ctx, body.CallbackID, input, body.ToolUseID)
	if err != nil {
		return nil, err
	}
	c.reportAll(out.Errors)

	return out.Output(), nil
}

// handleMCPMessage routes a JSON-RPC message to an in-process MCP server.
func (c *Controller) handleMCPMessage(ctx context.Context, req *messages.ControlRequest) (map[string]any, error) {
	server, msg, err := parse.MCPMessage(req)
	if err != nil {
		return nil, err
	}

	return map[string]any{"mcp_response": c.mcp.Handle(ctx, server, msg)}, nil
}

// initializePayload builds the initialize request. PreToolUse and
// PostToolUse hooks run locally around can_use_tool, so only the other
// events are announced.
func (c *Controller) initializePayload() map[string]any {
	payload := map[string]any{
		"permissionMode": string(c.arbiter.Mode()),
	}
	if hooks := c.hookAnnouncement(); len(hooks) > 0 {
		payload["hooks"] = hooks
	}
	opts := c.opts
	if opts == nil {
		return payload
	}
	switch p := opts.SystemPrompt.(type) {
	case options.StringSystemPrompt:
		payload["systemPrompt"] = string(p)
	case options.PresetSystemPrompt:
		preset := map[string]any{"type": "preset", "preset": p.Preset}
		if p.Append != nil {
			preset["append"] = *p.Append
		}
		payload["systemPrompt"] = preset
	}
	if len(opts.AllowedTools) > 0 {
		payload["allowedTools"] = options.ToolNames(opts.AllowedTools)
	}
	if len(opts.DisallowedTools) > 0 {
		payload["disallowedTools"] = options.ToolNames(opts.DisallowedTools)
	}
	if len(opts.MCPServers) > 0 {
		names := make([]string, 0, len(opts.MCPServers))
		for name := range opts.MCPServers {
			names = append(names, name)
		}
		sort.Strings(names)
		payload["mcpServers"] = names
	}
	if opts.MaxTurns != nil {
		payload["maxTurns"] = *opts.MaxTurns
	}
	if opts.Model != nil {
		payload["model"] = *opts.Model
	}
	if len(opts.Agents) > 0 {
		agents := make(map[string]any, len(opts.Agents))
		for name, def := range opts.Agents {
			agent := map[string]any{"description": def.Description, "prompt": def.Prompt}
			if len(def.Tools) > 0 {
				agent["tools"] = options.ToolNames(def.Tools)
			}
			if def.Model != nil {
				agent["model"] = *def.Model
			}
			agents[name] = agent
		}
		payload["agents"] = agents
	}

	return payload
}

func (c *Controller) hookAnnouncement() map[string]any {
	announced := make(map[string]any)
	for event, regs := range c.hooks.Registrations() {
		if event == hooking.HookEventPreToolUse || event == hooking.HookEventPostToolUse {
			continue
		}
		entries := make([]map[string]any, 0, len(regs))
		for _, reg := range regs {
			entry := map[string]any{
				"matcher":         reg.Matcher,
				"hookCallbackIds": reg.CallbackIDs,
			}
			if reg.Timeout > 0 {
				entry["timeout"] = reg.Timeout.Seconds()
			}
			entries = append(entries, entry)
		}
		announced[string(event)] = entries
	}

	return announced
}

// Control sends an outbound control request and waits for its response.
func (c *Controller) Control(
	ctx context.Context,
	subtype string,
	payload map[string]any,
	opts ...jsonrpc.SendOption,
) (map[string]any, error) {
	return c.router.Send(ctx, subtype, payload, opts...)
}

// SetPermissionMode switches the worker and the local arbiter to mode and
// records it in the session store.
func (c *Controller) SetPermissionMode(ctx context.Context, mode options.PermissionMode) error {
	if !mode.Valid() {
		return clauderrs.NewValidationError(
			clauderrs.ErrCodeInvalidFormat,
			fmt.Sprintf("unknown permission mode %q", mode),
			nil,
			"mode",
			string(mode),
		)
	}
	if _, err := c.Control(ctx, messages.SubtypeSetPermissionMode, map[string]any{"mode": string(mode)}); err != nil {
		return err
	}
	if err := c.arbiter.SetMode(mode); err != nil {
		return err
	}
	if err := c.store.SetMode(ctx, c.sessionID, string(mode)); err != nil {
		c.logger.Warn("failed to record permission mode", zap.Error(err))
	}

	return nil
}

// SetModel changes the model. Nil restores the default.
func (c *Controller) SetModel(ctx context.Context, model *string) error {
	var value any
	if model != nil {
		value = *model
	}
	_, err := c.Control(ctx, messages.SubtypeSetModel, map[string]any{"model": value})

	return err
}

// SetMaxThinkingTokens changes the thinking budget. Nil removes the limit.
func (c *Controller) SetMaxThinkingTokens(ctx context.Context, tokens *int) error {
	var value any
	if tokens != nil {
		value = *tokens
	}
	_, err := c.Control(ctx, messages.SubtypeSetMaxThinkingTokens, map[string]any{"max_thinking_tokens": value})

	return err
}
