package querying

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/adapters/parse"
	"github.com/conneroisu/claude-control/pkg/claude/hooking"
	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/permissions"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// Denial sources that do not come from the arbiter.
const sourceHook = "hook"

// Permission response behaviours.
const (
	behaviorAllow = "allow"
	behaviorDeny  = "deny"
)

// transcriptPather is implemented by stores that keep a transcript file.
type transcriptPather interface {
	TranscriptPath(sessionID string) string
}

// handleCanUseTool arbitrates one tool request: PreToolUse hooks, then the
// arbiter, then local execution when the host owns the tool.
func (c *Controller) handleCanUseTool(ctx context.Context, req *messages.ControlRequest) (map[string]any, error) {
	c.setState(StateToolPending)
	inv, err := parse.ToolInvocation(req)
	if err != nil {
		return nil, err
	}
	logger := c.logger.With(
		zap.String("tool", inv.ToolName),
		zap.String("tool_use_id", inv.ToolUseID),
	)
	input := inv.Input

	if c.hooks.Has(hooking.HookEventPreToolUse) {
		toolUseID := inv.ToolUseID
		out := c.hooks.Dispatch(ctx, hooking.HookEventPreToolUse, hooking.PreToolUseHookInput{
			BaseHookInput: c.hookBase(),
			HookEventName: string(hooking.HookEventPreToolUse),
			ToolName:      inv.ToolName,
			ToolInput:     input,
		}, &toolUseID)
		c.reportAll(out.Errors)
		if out.Blocked || out.Stopped {
			logger.Debug("tool refused by hook", zap.Bool("interrupt", out.Stopped))

			return c.deny(inv, input, &permissions.PermissionResultDeny{
				Message:   out.DenyMessage(),
				Interrupt: out.Stopped,
				Reason:    sourceHook,
			}), nil
		}
		if out.UpdatedInput != nil {
			input = out.UpdatedInput
		}
	}

	mode := c.arbiter.Mode()
	verdict, err := c.arbiter.Evaluate(ctx, permissions.Request{
		ToolName:    inv.ToolName,
		Input:       input,
		ToolUseID:   inv.ToolUseID,
		Suggestions: permissions.ParseSuggestions(inv.Suggestions),
		BlockedPath: inv.BlockedPath,
	})
	if err != nil {
		return nil, err
	}
	if next := c.arbiter.Mode(); next != mode {
		// A setMode update in the verdict.
		if err := c.store.SetMode(context.WithoutCancel(ctx), c.sessionID, string(next)); err != nil {
			logger.Warn("failed to record permission mode", zap.Error(err))
			c.report(err)
		}
	}
	allow, ok := verdict.(*permissions.PermissionResultAllow)
	if !ok {
		deny, isDeny := verdict.(*permissions.PermissionResultDeny)
		if !isDeny {
			deny = &permissions.PermissionResultDeny{
				Message: fmt.Sprintf("unrecognized permission verdict %T", verdict),
				Reason:  permissions.ReasonDefault,
			}
		}

		return c.deny(inv, input, deny), nil
	}
	if allow.UpdatedInput != nil {
		input = allow.UpdatedInput
	}
	if _, local := c.tools.Executor(inv.ToolName); local {
		c.followUp = c.execute(ctx, inv, input)
	}
	logger.Debug("tool allowed", zap.String("reason", allow.Reason), zap.Bool("local", c.followUp != nil))

	return allowResponse(input, allow.UpdatedPermissions), nil
}

// deny records the denial for the caller and builds the response. An
// interrupting denial also ends the session once the response is written.
func (c *Controller) deny(
	inv *messages.ToolInvocationRequest,
	input map[string]any,
	d *permissions.PermissionResultDeny,
) map[string]any {
	c.denial = &messages.PermissionDenial{
		ToolName:  inv.ToolName,
		ToolUseID: inv.ToolUseID,
		ToolInput: input,
		Message:   d.Message,
		Interrupt: d.Interrupt,
		Source:    d.Reason,
	}
	if d.Interrupt {
		c.stopCause = clauderrs.NewPermissionError(
			clauderrs.ErrCodeToolDenied,
			d.Message,
			nil,
			inv.ToolName,
			"use",
		)
	}

	return map[string]any{
		"behavior":  behaviorDeny,
		"message":   d.Message,
		"interrupt": d.Interrupt,
	}
}

// execute validates and runs a host-owned tool, then PostToolUse hooks. The
// tool runs on a context detached from cancellation so an interrupt lets it
// finish. Failures become an error tool result.
func (c *Controller) execute(
	ctx context.Context,
	inv *messages.ToolInvocationRequest,
	input map[string]any,
) *messages.UserMessage {
	toolCtx := context.WithoutCancel(ctx)
	result, err := c.tools.Execute(toolCtx, ports.ToolCall{
		ToolName:  inv.ToolName,
		ToolUseID: inv.ToolUseID,
		Input:     input,
		SessionID: c.sessionID,
	})
	if err != nil {
		c.logger.Warn("tool failed",
			zap.String("tool", inv.ToolName),
			zap.String("tool_use_id", inv.ToolUseID),
			zap.Error(err),
		)
		c.report(err)
		result = ports.ToolResult{Content: err.Error(), IsError: true}
	}

	if c.hooks.Has(hooking.HookEventPostToolUse) {
		toolUseID := inv.ToolUseID
		out := c.hooks.Dispatch(toolCtx, hooking.HookEventPostToolUse, hooking.PostToolUseHookInput{
			BaseHookInput: c.hookBase(),
			HookEventName: string(hooking.HookEventPostToolUse),
			ToolName:      inv.ToolName,
			ToolInput:     input,
			ToolResponse:  result.Content,
		}, &toolUseID)
		c.reportAll(out.Errors)
		result.Content = appendLine(result.Content, out.AdditionalContext)
		if out.Blocked {
			result.IsError = true
			result.Content = appendLine(result.Content, out.DenyMessage())
		}
	}

	msg := messages.NewToolResult(inv.ToolUseID, result.Content, result.IsError)
	msg.ParentToolUseID = inv.ParentToolUseID

	return msg
}

func appendLine(text, line string) string {
	switch {
	case line == "":
		return text
	case text == "":
		return line
	default:
		return text + "\n" + line
	}
}

func allowResponse(input map[string]any, updates []permissions.PermissionUpdate) map[string]any {
	resp := map[string]any{"behavior": behaviorAllow, "updatedInput": input}
	if len(updates) > 0 {
		wire := make([]any, 0, len(updates))
		for _, u := range updates {
			wire = append(wire, u.Wire())
		}
		resp["updatedPermissions"] = wire
	}

	return resp
}

func (c *Controller) hookBase() hooking.BaseHookInput {
	mode := string(c.arbiter.Mode())
	base := hooking.BaseHookInput{
		SessionID:      c.sessionID,
		Cwd:            c.opts.WorkDir(),
		PermissionMode: &mode,
	}
	if tp, ok := c.store.(transcriptPather); ok {
		base.TranscriptPath = tp.TranscriptPath(c.sessionID)
	}

	return base
}
