// Package testutil provides a scripted worker and recording collaborators
// for hermetic tests.
package testutil

import (
	"github.com/conneroisu/claude-control/pkg/claude/messages"
)

// AssistantText is an assistant turn holding one text block.
func AssistantText(text string) *messages.AssistantMessage {
	return &messages.AssistantMessage{
		Content: []messages.ContentBlock{&messages.TextBlock{Text: text}},
		Model:   "claude-sonnet-4",
	}
}

// AssistantToolUse is an assistant turn that calls tool.
func AssistantToolUse(toolUseID, tool string, input map[string]any) *messages.AssistantMessage {
	return &messages.AssistantMessage{
		Content: []messages.ContentBlock{
			&messages.ToolUseBlock{ID: toolUseID, Name: tool, Input: input},
		},
		Model: "claude-sonnet-4",
	}
}

// Result is a successful end of turn.
func Result() *messages.ResultMessage {
	return &messages.ResultMessage{
		Subtype:    messages.ResultSuccess,
		DurationMS: 1234,
		NumTurns:   1,
	}
}

// Success answers requestID with payload.
func Success(requestID string, payload map[string]any) *messages.ControlResponse {
	return &messages.ControlResponse{
		RequestID: requestID,
		Subtype:   messages.ResponseSuccess,
		Response:  payload,
	}
}

// CanUseTool is the worker asking to run tool.
func CanUseTool(requestID, toolUseID, tool string, input map[string]any) *messages.ControlRequest {
	return &messages.ControlRequest{
		RequestID: requestID,
		Subtype:   messages.SubtypeCanUseTool,
		Payload: map[string]any{
			"tool_name":   tool,
			"input":       input,
			"tool_use_id": toolUseID,
		},
	}
}

// HookCallback is the worker triggering the hook registered as callbackID.
func HookCallback(requestID, callbackID string, input map[string]any) *messages.ControlRequest {
	return &messages.ControlRequest{
		RequestID: requestID,
		Subtype:   messages.SubtypeHookCallback,
		Payload: map[string]any{
			"callback_id": callbackID,
			"input":       input,
		},
	}
}

// MCPMessage is the worker sending a JSON-RPC message to server.
func MCPMessage(requestID, server string, msg map[string]any) *messages.ControlRequest {
	return &messages.ControlRequest{
		RequestID: requestID,
		Subtype:   messages.SubtypeMCPMessage,
		Payload: map[string]any{
			"server_name": server,
			"message":     msg,
		},
	}
}
