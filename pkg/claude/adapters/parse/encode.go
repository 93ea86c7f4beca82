package parse

import (
	"fmt"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
)

func encodeMessage(m messages.Message) (map[string]any, error) {
	switch msg := m.(type) {
	case *messages.AssistantMessage:
		return encodeAssistant(msg)
	case *messages.UserMessage:
		return encodeUser(msg)
	case *messages.ResultMessage:
		return encodeResult(msg), nil
	case *messages.SystemMessage:
		return encodeSystem(msg)
	case *messages.StreamEvent:
		data := withMeta(typeStreamEvent, msg.Meta)
		setObject(data, "event", msg.Event)
		data["parent_tool_use_id"] = nullable(msg.ParentToolUseID)

		return data, nil
	case *messages.PermissionDenial:
		return encodePermissionDenial(msg), nil
	case *messages.ControlRequest:
		body := make(map[string]any, len(msg.Payload)+1)
		for k, v := range msg.Payload {
			body[k] = v
		}
		body["subtype"] = msg.Subtype

		return map[string]any{
			"type":       typeControlRequest,
			"request_id": msg.RequestID,
			"request":    body,
		}, nil
	case *messages.ControlResponse:
		return encodeControlResponse(msg), nil
	case *messages.ControlCancelRequest:
		return map[string]any{"type": typeControlCancel, "request_id": msg.RequestID}, nil
	case nil:
		return nil, fmt.Errorf("nil message")
	default:
		return nil, fmt.Errorf("unsupported message %T", m)
	}
}

func withMeta(msgType string, meta messages.Meta) map[string]any {
	data := map[string]any{"type": msgType}
	if meta.UUID != "" {
		data["uuid"] = meta.UUID
	}
	if meta.SessionID != "" {
		data["session_id"] = meta.SessionID
	}

	return data
}

func encodeAssistant(m *messages.AssistantMessage) (map[string]any, error) {
	blocks, err := encodeBlocks(m.Content)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"role": "assistant", "content": blocks}
	if m.Model != "" {
		body["model"] = m.Model
	}
	data := withMeta(typeAssistant, m.Meta)
	data["message"] = body
	data["parent_tool_use_id"] = nullable(m.ParentToolUseID)

	return data, nil
}

func encodeUser(m *messages.UserMessage) (map[string]any, error) {
	body := map[string]any{"role": "user"}
	switch c := m.Content.(type) {
	case messages.StringContent:
		body["content"] = string(c)
	case messages.BlocksContent:
		blocks, err := encodeBlocks(c)
		if err != nil {
			return nil, err
		}
		body["content"] = blocks
	case nil:
		body["content"] = ""
	default:
		return nil, fmt.Errorf("unsupported user content %T", c)
	}

	data := withMeta(typeUser, m.Meta)
	data["message"] = body
	data["parent_tool_use_id"] = nullable(m.ParentToolUseID)
	if m.IsReplay {
		data["isReplay"] = true
	}
	if m.IsSynthetic {
		data["isSynthetic"] = true
	}

	return data, nil
}

func encodeResult(m *messages.ResultMessage) map[string]any {
	data := withMeta(typeResult, m.Meta)
	data["subtype"] = string(m.Subtype)
	data["duration_ms"] = m.DurationMS
	data["duration_api_ms"] = m.DurationAPIMS
	data["is_error"] = m.IsError
	data["num_turns"] = m.NumTurns
	if m.Result != nil {
		data["result"] = *m.Result
	}
	if m.TotalCostUSD != nil {
		data["total_cost_usd"] = *m.TotalCostUSD
	}
	setObject(data, "usage", m.Usage)
	if len(m.PermissionDenials) > 0 {
		denials := make([]any, 0, len(m.PermissionDenials))
		for _, d := range m.PermissionDenials {
			entry := map[string]any{"tool_name": d.ToolName, "tool_use_id": d.ToolUseID}
			setObject(entry, "tool_input", d.ToolInput)
			denials = append(denials, entry)
		}
		data["permission_denials"] = denials
	}

	return data
}

func encodePermissionDenial(m *messages.PermissionDenial) map[string]any {
	data := withMeta(typePermissionDenial, m.Meta)
	data["tool_name"] = m.ToolName
	data["tool_use_id"] = m.ToolUseID
	setObject(data, "tool_input", m.ToolInput)
	data["message"] = m.Message
	data["interrupt"] = m.Interrupt
	if m.Source != "" {
		data["source"] = m.Source
	}

	return data
}

func encodeControlResponse(m *messages.ControlResponse) map[string]any {
	body := map[string]any{
		"subtype":    m.Subtype,
		"request_id": m.RequestID,
	}
	if m.Response != nil {
		body["response"] = m.Response
	}
	if m.Error != "" {
		body["error"] = m.Error
	}

	return map[string]any{"type": typeControlResponse, "response": body}
}
