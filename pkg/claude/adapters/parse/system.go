package parse

import (
	"errors"
	"fmt"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
)

func decodeSystem(data map[string]any) (messages.Message, error) {
	meta, err := decodeMeta(data)
	if err != nil {
		return nil, err
	}
	subtype, err := requiredString(data, "subtype")
	if err != nil {
		return nil, err
	}

	var payload messages.SystemData
	switch messages.SystemSubtype(subtype) {
	case messages.SystemInit:
		payload, err = decodeInit(data)
	case messages.SystemCompactBoundary:
		payload, err = decodeCompactBoundary(data)
	case messages.SystemHookResponse:
		payload, err = decodeHookResponse(data)
	default:
		return nil, fmt.Errorf("unknown system subtype: %s", subtype)
	}
	if err != nil {
		return nil, fmt.Errorf("system %s: %w", subtype, err)
	}

	return &messages.SystemMessage{
		Meta:    meta,
		Subtype: messages.SystemSubtype(subtype),
		Data:    payload,
	}, nil
}

func decodeInit(data map[string]any) (*messages.InitData, error) {
	init := &messages.InitData{}
	var errs []error
	var e error
	init.Cwd, e = optionalString(data, "cwd")
	errs = append(errs, e)
	init.Tools, e = stringSlice(data, "tools")
	errs = append(errs, e)
	init.Model, e = optionalString(data, "model")
	errs = append(errs, e)
	init.PermissionMode, e = optionalString(data, "permissionMode")
	errs = append(errs, e)
	init.SlashCommands, e = stringSlice(data, "slash_commands")
	errs = append(errs, e)
	init.APIKeySource, e = optionalString(data, "apiKeySource")
	errs = append(errs, e)
	init.OutputStyle, e = optionalString(data, "output_style")
	errs = append(errs, e)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	servers, err := listField(data, "mcp_servers")
	if err != nil {
		return nil, err
	}
	for _, raw := range servers {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: mcp_servers entry must be object", ErrInvalidType)
		}
		name, err := requiredString(entry, "name")
		if err != nil {
			return nil, err
		}
		status, err := optionalString(entry, "status")
		if err != nil {
			return nil, err
		}
		init.MCPServers = append(init.MCPServers, messages.MCPServerStatus{Name: name, Status: status})
	}

	return init, nil
}

func decodeCompactBoundary(data map[string]any) (*messages.CompactBoundaryData, error) {
	meta, err := mapField(data, "compact_metadata")
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return &messages.CompactBoundaryData{}, nil
	}
	trigger, err := optionalString(meta, "trigger")
	if err != nil {
		return nil, err
	}
	preTokens, err := intField(meta, "pre_tokens")
	if err != nil {
		return nil, err
	}

	return &messages.CompactBoundaryData{Trigger: trigger, PreTokens: preTokens}, nil
}

func decodeHookResponse(data map[string]any) (*messages.HookResponseData, error) {
	resp := &messages.HookResponseData{}
	var errs []error
	var e error
	resp.HookName, e = optionalString(data, "hook_name")
	errs = append(errs, e)
	resp.HookEvent, e = optionalString(data, "hook_event")
	errs = append(errs, e)
	resp.Stdout, e = optionalString(data, "stdout")
	errs = append(errs, e)
	resp.Stderr, e = optionalString(data, "stderr")
	errs = append(errs, e)
	resp.ExitCode, e = intPtr(data, "exit_code")
	errs = append(errs, e)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return resp, nil
}

func encodeSystem(m *messages.SystemMessage) (map[string]any, error) {
	data := withMeta(typeSystem, m.Meta)
	data["subtype"] = string(m.Subtype)

	switch payload := m.Data.(type) {
	case *messages.InitData:
		if m.Subtype != messages.SystemInit {
			return nil, fmt.Errorf("init payload on %s message", m.Subtype)
		}
		data["cwd"] = payload.Cwd
		data["tools"] = nonNilStrings(payload.Tools)
		data["model"] = payload.Model
		data["permissionMode"] = payload.PermissionMode
		data["slash_commands"] = nonNilStrings(payload.SlashCommands)
		data["apiKeySource"] = payload.APIKeySource
		data["output_style"] = payload.OutputStyle
		servers := make([]any, 0, len(payload.MCPServers))
		for _, s := range payload.MCPServers {
			servers = append(servers, map[string]any{"name": s.Name, "status": s.Status})
		}
		data["mcp_servers"] = servers
	case *messages.CompactBoundaryData:
		if m.Subtype != messages.SystemCompactBoundary {
			return nil, fmt.Errorf("compact payload on %s message", m.Subtype)
		}
		data["compact_metadata"] = map[string]any{
			"trigger":    payload.Trigger,
			"pre_tokens": payload.PreTokens,
		}
	case *messages.HookResponseData:
		if m.Subtype != messages.SystemHookResponse {
			return nil, fmt.Errorf("hook response payload on %s message", m.Subtype)
		}
		data["hook_name"] = payload.HookName
		data["hook_event"] = payload.HookEvent
		data["stdout"] = payload.Stdout
		data["stderr"] = payload.Stderr
		if payload.ExitCode != nil {
			data["exit_code"] = *payload.ExitCode
		}
	default:
		return nil, fmt.Errorf("system message %s has no payload", m.Subtype)
	}

	return data, nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}

	return in
}
