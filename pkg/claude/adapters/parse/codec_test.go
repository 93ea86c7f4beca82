package parse_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/claude-control/pkg/claude/adapters/parse"
	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

func ptr[T any](v T) *T { return &v }

func meta() messages.Meta {
	return messages.Meta{UUID: "3f0c5c5e-1111-4a2b-9c3d-000000000001", SessionID: "sess-1"}
}

// roundTripCases covers every variant the codec can produce.
func roundTripCases() map[string]messages.Message {
	exit := 2

	return map[string]messages.Message{
		"assistant": &messages.AssistantMessage{
			Meta:  meta(),
			Model: "claude-sonnet-4-5",
			Content: []messages.ContentBlock{
				&messages.TextBlock{Text: "line one\nline two"},
				&messages.ThinkingBlock{Thinking: "hmm", Signature: "sig"},
				&messages.ToolUseBlock{
					ID:    "toolu_1",
					Name:  "Bash",
					Input: map[string]any{"command": "git status", "timeout": 1000},
				},
				&messages.ToolUseBlock{
					ID:    "toolu_2",
					Name:  "Edit",
					Input: map[string]any{"ratio": 0.5, "scale": float64(2), "tags": []any{1, "a", 1.25}},
				},
				&messages.ToolUseBlock{ID: "toolu_3", Name: "TodoRead", Input: map[string]any{}},
				&messages.ToolUseBlock{ID: "toolu_4", Name: "TodoRead"},
			},
			ParentToolUseID: ptr("toolu_parent"),
		},
		"user string": &messages.UserMessage{
			Meta:    meta(),
			Content: messages.StringContent("hello <world> & you"),
		},
		"user tool result": &messages.UserMessage{
			Meta: meta(),
			Content: messages.BlocksContent{
				&messages.ToolResultBlock{
					ToolUseID: "toolu_1",
					Content:   messages.ToolResultString("On branch main"),
				},
				&messages.ToolResultBlock{
					ToolUseID: "toolu_2",
					Content: messages.ToolResultBlocks{
						&messages.TextBlock{Text: "denied"},
					},
					IsError: true,
				},
			},
			IsSynthetic: true,
		},
		"user replay": &messages.UserMessage{
			Meta:     meta(),
			Content:  messages.StringContent("earlier prompt"),
			IsReplay: true,
		},
		"result success": &messages.ResultMessage{
			Meta:          meta(),
			Subtype:       messages.ResultSuccess,
			DurationMS:    1200,
			DurationAPIMS: 900,
			NumTurns:      3,
			Result:        ptr("done"),
			TotalCostUSD:  ptr(0.0125),
			Usage:         map[string]any{"input_tokens": 10, "cache": map[string]any{"hit_ratio": float64(1)}},
			PermissionDenials: []messages.DeniedTool{
				{ToolName: "Write", ToolUseID: "toolu_9", ToolInput: map[string]any{"file_path": "/etc/passwd"}},
			},
		},
		"result empty usage": &messages.ResultMessage{
			Meta:    meta(),
			Subtype: messages.ResultSuccess,
			Usage:   map[string]any{},
		},
		"result max turns": &messages.ResultMessage{
			Meta:     meta(),
			Subtype:  messages.ResultErrorMaxTurns,
			IsError:  true,
			NumTurns: 10,
		},
		"result execution error": &messages.ResultMessage{
			Meta:    meta(),
			Subtype: messages.ResultErrorDuringExecution,
			IsError: true,
		},
		"system init": &messages.SystemMessage{
			Meta:    meta(),
			Subtype: messages.SystemInit,
			Data: &messages.InitData{
				Cwd:            "/work",
				Tools:          []string{"Bash", "Read"},
				MCPServers:     []messages.MCPServerStatus{{Name: "calc", Status: "connected"}},
				Model:          "claude-sonnet-4-5",
				PermissionMode: "default",
				SlashCommands:  []string{"compact"},
				APIKeySource:   "none",
				OutputStyle:    "default",
			},
		},
		"system compact boundary": &messages.SystemMessage{
			Meta:    meta(),
			Subtype: messages.SystemCompactBoundary,
			Data:    &messages.CompactBoundaryData{Trigger: "auto", PreTokens: 120000},
		},
		"system hook response": &messages.SystemMessage{
			Meta:    meta(),
			Subtype: messages.SystemHookResponse,
			Data: &messages.HookResponseData{
				HookName:  "lint",
				HookEvent: "PostToolUse",
				Stdout:    "ok",
				ExitCode:  &exit,
			},
		},
		"stream event": &messages.StreamEvent{
			Meta:  meta(),
			Event: map[string]any{"type": "content_block_delta", "index": 0, "delta": map[string]any{}},
		},
		"permission denial": &messages.PermissionDenial{
			Meta:      meta(),
			ToolName:  "Bash",
			ToolUseID: "toolu_3",
			ToolInput: map[string]any{"command": "rm -rf /"},
			Message:   "blocked by hook",
			Interrupt: true,
			Source:    "hook",
		},
		"control request": &messages.ControlRequest{
			RequestID: "req_1_abcd",
			Subtype:   messages.SubtypeSetModel,
			Payload:   map[string]any{"model": "claude-opus-4-1"},
		},
		"control request numeric payload": &messages.ControlRequest{
			RequestID: "req_5_abcd",
			Subtype:   messages.SubtypeCanUseTool,
			Payload: map[string]any{
				"tool_name": "Bash",
				"input":     map[string]any{"command": "sleep 1", "timeout": 1000, "budget": 1.5e21},
			},
		},
		"control request without payload": &messages.ControlRequest{
			RequestID: "req_2_abcd",
			Subtype:   messages.SubtypeInterrupt,
		},
		"control response success": &messages.ControlResponse{
			RequestID: "req_1_abcd",
			Subtype:   messages.ResponseSuccess,
			Response:  map[string]any{"behavior": "allow"},
		},
		"control response error": &messages.ControlResponse{
			RequestID: "req_3_abcd",
			Subtype:   messages.ResponseError,
			Error:     "unsupported",
		},
		"control cancel": &messages.ControlCancelRequest{RequestID: "req_4_abcd"},
	}
}

func TestRoundTrip(t *testing.T) {
	codec := parse.NewCodec()
	for name, msg := range roundTripCases() {
		t.Run(name, func(t *testing.T) {
			line, err := codec.Encode(msg)
			require.NoError(t, err)
			require.True(t, bytes.HasSuffix(line, []byte("\n")), "line must end with newline")
			assert.Equal(t, 1, bytes.Count(line, []byte("\n")), "payload must not contain raw newlines")

			decoded, err := codec.Decode(line)
			require.NoError(t, err)
			assert.Equal(t, msg, decoded)
		})
	}
}

func TestEncodeKeepsCallerMaps(t *testing.T) {
	input := map[string]any{"n": float64(3)}
	msg := &messages.AssistantMessage{
		Meta:    meta(),
		Content: []messages.ContentBlock{&messages.ToolUseBlock{ID: "toolu_1", Name: "Bash", Input: input}},
	}

	line, err := parse.Encode(msg)
	require.NoError(t, err)
	assert.Contains(t, string(line), `"n":3.0`)
	assert.Equal(t, float64(3), input["n"])
}

func TestDecodeWorkerNumbers(t *testing.T) {
	line := `{"type":"stream_event","event":{"index":2,"ratio":0.25,"big":1e3,"huge":123456789012345678901234}}`

	msg, err := parse.Decode([]byte(line))
	require.NoError(t, err)

	event := msg.(*messages.StreamEvent).Event
	assert.Equal(t, 2, event["index"])
	assert.Equal(t, 0.25, event["ratio"])
	assert.Equal(t, float64(1000), event["big"])
	assert.IsType(t, float64(0), event["huge"])
}

func TestDecodeRejectsUnknown(t *testing.T) {
	tests := []struct {
		name string
		line string
		code clauderrs.ErrorCode
	}{
		{name: "unknown type", line: `{"type":"telemetry"}`, code: clauderrs.ErrCodeUnknownMessageType},
		{name: "missing type", line: `{"subtype":"init"}`, code: clauderrs.ErrCodeInvalidMessage},
		{name: "malformed", line: `{"type":`, code: clauderrs.ErrCodeMessageParseFailed},
		{name: "empty", line: "  \n", code: clauderrs.ErrCodeInvalidMessage},
		{name: "trailing data", line: `{"type":"user"} {}`, code: clauderrs.ErrCodeMessageParseFailed},
		{
			name: "unknown system subtype",
			line: `{"type":"system","subtype":"status"}`,
			code: clauderrs.ErrCodeMessageParseFailed,
		},
		{
			name: "unknown result subtype",
			line: `{"type":"result","subtype":"error_max_budget"}`,
			code: clauderrs.ErrCodeMessageParseFailed,
		},
		{
			name: "unknown block type",
			line: `{"type":"assistant","message":{"content":[{"type":"image"}]}}`,
			code: clauderrs.ErrCodeMessageParseFailed,
		},
		{
			name: "control request without subtype",
			line: `{"type":"control_request","request_id":"r1","request":{}}`,
			code: clauderrs.ErrCodeMessageParseFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := parse.Decode([]byte(tt.line))
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.True(t, clauderrs.IsProtocolError(err))

			var protoErr *clauderrs.ProtocolError
			require.ErrorAs(t, err, &protoErr)
			assert.Equal(t, tt.code, protoErr.Code())
			assert.Equal(t, tt.line, string(protoErr.Line()))
		})
	}
}

func TestDecodeWorkerShapes(t *testing.T) {
	line := `{"type":"result","subtype":"success","duration_ms":12.0,"num_turns":"2","is_error":false,` +
		`"session_id":"abc","uuid":"u1","total_cost_usd":0.5}` + "\n"

	msg, err := parse.Decode([]byte(line))
	require.NoError(t, err)

	result, ok := msg.(*messages.ResultMessage)
	require.True(t, ok, "expected *ResultMessage, got %T", msg)
	assert.Equal(t, 12, result.DurationMS)
	assert.Equal(t, 2, result.NumTurns)
	require.NotNil(t, result.TotalCostUSD)
	assert.InDelta(t, 0.5, *result.TotalCostUSD, 1e-9)

	sessionID, uuid := messages.IdentityOf(msg)
	assert.Equal(t, "abc", sessionID)
	assert.Equal(t, "u1", uuid)
}

func TestToolInvocation(t *testing.T) {
	line := `{"type":"control_request","request_id":"req_7","request":{"subtype":"can_use_tool",` +
		`"tool_name":"Bash","input":{"command":"git status"},"tool_use_id":"toolu_1",` +
		`"permission_suggestions":[{"type":"addRules","behavior":"allow","destination":"session",` +
		`"rules":[{"toolName":"Bash","ruleContent":"git status:*"}]}]}}`

	msg, err := parse.Decode([]byte(line))
	require.NoError(t, err)
	req, ok := msg.(*messages.ControlRequest)
	require.True(t, ok)

	inv, err := parse.ToolInvocation(req)
	require.NoError(t, err)
	assert.Equal(t, "req_7", inv.RequestID)
	assert.Equal(t, "Bash", inv.ToolName)
	assert.Equal(t, "toolu_1", inv.ToolUseID)
	assert.Equal(t, map[string]any{"command": "git status"}, inv.Input)
	require.Len(t, inv.Suggestions, 1)
	assert.Equal(t, "addRules", inv.Suggestions[0]["type"])

	_, err = parse.ToolInvocation(&messages.ControlRequest{RequestID: "x", Subtype: messages.SubtypeInterrupt})
	assert.Error(t, err)
}
