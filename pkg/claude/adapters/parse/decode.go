package parse

import (
	"errors"
	"fmt"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
)

func decodeMeta(data map[string]any) (messages.Meta, error) {
	uuid, err := optionalString(data, "uuid")
	if err != nil {
		return messages.Meta{}, err
	}
	sessionID, err := optionalString(data, "session_id")
	if err != nil {
		return messages.Meta{}, err
	}

	return messages.Meta{UUID: uuid, SessionID: sessionID}, nil
}

func decodeAssistant(data map[string]any) (messages.Message, error) {
	meta, err := decodeMeta(data)
	if err != nil {
		return nil, err
	}
	body, err := mapField(data, "message")
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("%w: message", ErrMissingField)
	}
	model, err := optionalString(body, "model")
	if err != nil {
		return nil, err
	}
	rawBlocks, err := listField(body, "content")
	if err != nil {
		return nil, err
	}
	blocks, err := decodeBlocks(rawBlocks)
	if err != nil {
		return nil, err
	}
	parent, err := stringPtr(data, "parent_tool_use_id")
	if err != nil {
		return nil, err
	}

	return &messages.AssistantMessage{
		Meta:            meta,
		Content:         blocks,
		Model:           model,
		ParentToolUseID: parent,
	}, nil
}

func decodeUser(data map[string]any) (messages.Message, error) {
	meta, err := decodeMeta(data)
	if err != nil {
		return nil, err
	}
	body, err := mapField(data, "message")
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("%w: message", ErrMissingField)
	}

	var content messages.MessageContent
	switch raw := body["content"].(type) {
	case string:
		content = messages.StringContent(raw)
	case []any:
		blocks, blockErr := decodeBlocks(raw)
		if blockErr != nil {
			return nil, blockErr
		}
		content = messages.BlocksContent(blocks)
	default:
		return nil, fmt.Errorf("%w: user content must be string or array, got %T", ErrInvalidType, raw)
	}

	parent, err := stringPtr(data, "parent_tool_use_id")
	if err != nil {
		return nil, err
	}
	replay, err := boolField(data, "isReplay")
	if err != nil {
		return nil, err
	}
	synthetic, err := boolField(data, "isSynthetic")
	if err != nil {
		return nil, err
	}

	return &messages.UserMessage{
		Meta:            meta,
		Content:         content,
		ParentToolUseID: parent,
		IsReplay:        replay,
		IsSynthetic:     synthetic,
	}, nil
}

func decodeStreamEvent(data map[string]any) (messages.Message, error) {
	meta, err := decodeMeta(data)
	if err != nil {
		return nil, err
	}
	event, err := objectField(data, "event")
	if err != nil {
		return nil, err
	}
	parent, err := stringPtr(data, "parent_tool_use_id")
	if err != nil {
		return nil, err
	}

	return &messages.StreamEvent{Meta: meta, Event: event, ParentToolUseID: parent}, nil
}

func decodeResult(data map[string]any) (messages.Message, error) {
	meta, err := decodeMeta(data)
	if err != nil {
		return nil, err
	}
	subtype, err := requiredString(data, "subtype")
	if err != nil {
		return nil, err
	}
	if !messages.ResultSubtype(subtype).Valid() {
		return nil, fmt.Errorf("unknown result subtype: %s", subtype)
	}

	msg := &messages.ResultMessage{Meta: meta, Subtype: messages.ResultSubtype(subtype)}
	var errs []error
	var e error
	msg.DurationMS, e = intField(data, "duration_ms")
	errs = append(errs, e)
	msg.DurationAPIMS, e = intField(data, "duration_api_ms")
	errs = append(errs, e)
	msg.IsError, e = boolField(data, "is_error")
	errs = append(errs, e)
	msg.NumTurns, e = intField(data, "num_turns")
	errs = append(errs, e)
	msg.Result, e = stringPtr(data, "result")
	errs = append(errs, e)
	msg.TotalCostUSD, e = floatPtr(data, "total_cost_usd")
	errs = append(errs, e)
	msg.Usage, e = objectField(data, "usage")
	errs = append(errs, e)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	denials, err := listField(data, "permission_denials")
	if err != nil {
		return nil, err
	}
	for _, raw := range denials {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: permission_denials entry must be object", ErrInvalidType)
		}
		denied, err := decodeDeniedTool(entry)
		if err != nil {
			return nil, err
		}
		msg.PermissionDenials = append(msg.PermissionDenials, denied)
	}

	return msg, nil
}

func decodeDeniedTool(entry map[string]any) (messages.DeniedTool, error) {
	name, err := requiredString(entry, "tool_name")
	if err != nil {
		return messages.DeniedTool{}, err
	}
	useID, err := optionalString(entry, "tool_use_id")
	if err != nil {
		return messages.DeniedTool{}, err
	}
	input, err := objectField(entry, "tool_input")
	if err != nil {
		return messages.DeniedTool{}, err
	}

	return messages.DeniedTool{ToolName: name, ToolUseID: useID, ToolInput: input}, nil
}

func decodePermissionDenial(data map[string]any) (messages.Message, error) {
	meta, err := decodeMeta(data)
	if err != nil {
		return nil, err
	}
	denial := &messages.PermissionDenial{Meta: meta}
	var errs []error
	var e error
	denial.ToolName, e = requiredString(data, "tool_name")
	errs = append(errs, e)
	denial.ToolUseID, e = optionalString(data, "tool_use_id")
	errs = append(errs, e)
	denial.ToolInput, e = objectField(data, "tool_input")
	errs = append(errs, e)
	denial.Message, e = optionalString(data, "message")
	errs = append(errs, e)
	denial.Interrupt, e = boolField(data, "interrupt")
	errs = append(errs, e)
	denial.Source, e = optionalString(data, "source")
	errs = append(errs, e)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return denial, nil
}

func decodeControlRequest(data map[string]any) (messages.Message, error) {
	requestID, err := requiredString(data, "request_id")
	if err != nil {
		return nil, err
	}
	body, err := mapField(data, "request")
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("%w: request", ErrMissingField)
	}
	subtype, err := requiredString(body, "subtype")
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	for k, v := range body {
		if k == "subtype" {
			continue
		}
		if payload == nil {
			payload = make(map[string]any, len(body)-1)
		}
		payload[k] = v
	}

	return &messages.ControlRequest{RequestID: requestID, Subtype: subtype, Payload: payload}, nil
}

func decodeControlResponse(data map[string]any) (messages.Message, error) {
	body, err := mapField(data, "response")
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("%w: response", ErrMissingField)
	}
	requestID, err := requiredString(body, "request_id")
	if err != nil {
		return nil, err
	}
	subtype, err := requiredString(body, "subtype")
	if err != nil {
		return nil, err
	}
	if subtype != messages.ResponseSuccess && subtype != messages.ResponseError {
		return nil, fmt.Errorf("unknown control response subtype: %s", subtype)
	}
	payload, err := mapField(body, "response")
	if err != nil {
		return nil, err
	}
	errText, err := optionalString(body, "error")
	if err != nil {
		return nil, err
	}

	return &messages.ControlResponse{
		RequestID: requestID,
		Subtype:   subtype,
		Response:  payload,
		Error:     errText,
	}, nil
}

func decodeControlCancel(data map[string]any) (messages.Message, error) {
	requestID, err := requiredString(data, "request_id")
	if err != nil {
		return nil, err
	}

	return &messages.ControlCancelRequest{RequestID: requestID}, nil
}
