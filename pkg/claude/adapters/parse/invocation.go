package parse

import (
	"fmt"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
)

// ToolInvocation extracts the tool invocation carried by a can_use_tool
// control request.
func ToolInvocation(req *messages.ControlRequest) (*messages.ToolInvocationRequest, error) {
	if req.Subtype != messages.SubtypeCanUseTool {
		return nil, fmt.Errorf("control request %s is not %s", req.Subtype, messages.SubtypeCanUseTool)
	}
	payload := req.Payload
	name, err := requiredString(payload, "tool_name")
	if err != nil {
		return nil, err
	}
	input, err := mapField(payload, "input")
	if err != nil {
		return nil, err
	}
	toolUseID, err := optionalString(payload, "tool_use_id")
	if err != nil {
		return nil, err
	}
	parent, err := stringPtr(payload, "parent_tool_use_id")
	if err != nil {
		return nil, err
	}
	blocked, err := stringPtr(payload, "blocked_path")
	if err != nil {
		return nil, err
	}
	rawSuggestions, err := listField(payload, "permission_suggestions")
	if err != nil {
		return nil, err
	}
	var suggestions []map[string]any
	for _, raw := range rawSuggestions {
		if s, ok := raw.(map[string]any); ok {
			suggestions = append(suggestions, s)
		}
	}

	return &messages.ToolInvocationRequest{
		RequestID:       req.RequestID,
		ToolName:        name,
		Input:           input,
		ToolUseID:       toolUseID,
		ParentToolUseID: parent,
		Suggestions:     suggestions,
		BlockedPath:     blocked,
	}, nil
}

// HookCallbackRequest is the body of a hook_callback control request.
type HookCallbackRequest struct {
	CallbackID string
	Input      map[string]any
	ToolUseID  *string
}

// HookCallback extracts the body of a hook_callback control request.
func HookCallback(req *messages.ControlRequest) (*HookCallbackRequest, error) {
	if req.Subtype != messages.SubtypeHookCallback {
		return nil, fmt.Errorf("control request %s is not %s", req.Subtype, messages.SubtypeHookCallback)
	}
	callbackID, err := optionalString(req.Payload, "callback_id")
	if err != nil {
		return nil, err
	}
	input, err := mapField(req.Payload, "input")
	if err != nil {
		return nil, err
	}
	if input == nil {
		return nil, fmt.Errorf("%w: input", ErrMissingField)
	}
	toolUseID, err := stringPtr(req.Payload, "tool_use_id")
	if err != nil {
		return nil, err
	}

	return &HookCallbackRequest{CallbackID: callbackID, Input: input, ToolUseID: toolUseID}, nil
}

// MCPMessage extracts the server name and raw JSON-RPC message of an
// mcp_message control request.
func MCPMessage(req *messages.ControlRequest) (string, map[string]any, error) {
	if req.Subtype != messages.SubtypeMCPMessage {
		return "", nil, fmt.Errorf("control request %s is not %s", req.Subtype, messages.SubtypeMCPMessage)
	}
	server, err := requiredString(req.Payload, "server_name")
	if err != nil {
		return "", nil, err
	}
	msg, err := mapField(req.Payload, "message")
	if err != nil {
		return "", nil, err
	}
	if msg == nil {
		return "", nil, fmt.Errorf("%w: message", ErrMissingField)
	}

	return server, msg, nil
}
