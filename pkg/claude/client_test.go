package claude_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/claude-control/pkg/claude"
	"github.com/conneroisu/claude-control/pkg/claude/adapters/cli"
	"github.com/conneroisu/claude-control/pkg/claude/hooking"
	"github.com/conneroisu/claude-control/pkg/claude/internal/testutil"
	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/claude/querying"
)

const waitFor = 5 * time.Second

// hermetic returns options that never touch the real home directory or
// the real worker.
func hermetic(t *testing.T) *claude.AgentOptions {
	t.Helper()
	dir := t.TempDir()
	cliPath := "/opt/test/claude"

	return &claude.AgentOptions{
		CLIPath:      &cliPath,
		Cwd:          &dir,
		SettingsHome: &dir,
	}
}

// launching returns a QueryConfig whose worker is ch. The launched command
// is stored in cmd.
func launching(ch *testutil.FakeChannel, cmd *cli.Command) *claude.QueryConfig {
	return &claude.QueryConfig{
		Launch: func(_ context.Context, c cli.Command, _ cli.Config) (ports.Channel, error) {
			if cmd != nil {
				*cmd = c
			}

			return ch, nil
		},
	}
}

func collect(t *testing.T, msgCh <-chan messages.Message, errCh <-chan error) ([]messages.Message, []error) {
	t.Helper()
	var msgs []messages.Message
	var errs []error
	timeout := time.After(waitFor)
	for msgCh != nil || errCh != nil {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				msgCh = nil

				continue
			}
			msgs = append(msgs, msg)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil

				continue
			}
			errs = append(errs, err)
		case <-timeout:
			t.Fatalf("streams not closed; got %d messages", len(msgs))
		}
	}

	return msgs, errs
}

func isPrompt(msg messages.Message) bool {
	user, ok := msg.(*messages.UserMessage)
	if !ok {
		return false
	}
	_, ok = user.Content.(messages.StringContent)

	return ok
}

func writeSettings(t *testing.T, cwd, content string) {
	t.Helper()
	path := filepath.Join(cwd, ".claude", "settings.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestQuery(t *testing.T) {
	ch := testutil.NewFakeChannel()
	ch.OnWrite = func(f *testutil.FakeChannel, msg messages.Message) {
		if !isPrompt(msg) {
			return
		}
		f.Emit(testutil.AssistantText("4"))
		f.Emit(testutil.Result())
		f.Exit(nil)
	}
	opts := hermetic(t)
	var cmd cli.Command

	msgCh, errCh := claude.Query(context.Background(), "2+2?", opts, launching(ch, &cmd))
	msgs, errs := collect(t, msgCh, errCh)

	assert.Empty(t, errs)
	require.Len(t, msgs, 2)
	assert.Equal(t, "4", msgs[0].(*messages.AssistantMessage).Content[0].(*messages.TextBlock).Text)
	assert.IsType(t, &messages.ResultMessage{}, msgs[1])
	assert.Equal(t, "/opt/test/claude", cmd.Path)
	assert.Contains(t, cmd.Args, "--permission-prompt-tool")
	assert.Equal(t, *opts.Cwd, cmd.Dir)
	assert.True(t, ch.InputClosed())
}

func TestQuery_LaunchFailure(t *testing.T) {
	boom := errors.New("spawn failed")
	config := &claude.QueryConfig{
		Launch: func(context.Context, cli.Command, cli.Config) (ports.Channel, error) {
			return nil, boom
		},
	}

	msgCh, errCh := claude.Query(context.Background(), "hi", hermetic(t), config)
	msgs, errs := collect(t, msgCh, errCh)

	assert.Empty(t, msgs)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}

func TestQuery_BlockBashPatternHook(t *testing.T) {
	ch := testutil.NewFakeChannel()
	ch.OnWrite = func(f *testutil.FakeChannel, msg messages.Message) {
		switch m := msg.(type) {
		case *messages.UserMessage:
			if isPrompt(m) {
				f.Emit(testutil.CanUseTool("req-1", "toolu_1", "Bash", map[string]any{"command": "rm -rf /"}))
			}
		case *messages.ControlResponse:
			if m.RequestID == "req-1" {
				f.Emit(testutil.Result())
				f.Exit(nil)
			}
		}
	}
	config := launching(ch, nil)
	config.Hooks = map[claude.HookEvent][]claude.HookMatcher{
		claude.HookEventPreToolUse: {{
			Matcher: "Bash",
			Hooks:   []claude.HookCallback{claude.BlockBashPatternHook([]string{"rm -rf"})},
		}},
	}

	msgCh, errCh := claude.Query(context.Background(), "clean up", hermetic(t), config)
	msgs, _ := collect(t, msgCh, errCh)

	resp, ok := ch.Response("req-1")
	require.True(t, ok)
	assert.Equal(t, "deny", resp.Response["behavior"])
	assert.Contains(t, resp.Response["message"], "rm -rf")

	var denied []*messages.PermissionDenial
	for _, msg := range msgs {
		if d, ok := msg.(*messages.PermissionDenial); ok {
			denied = append(denied, d)
		}
	}
	require.Len(t, denied, 1)
	assert.Equal(t, "Bash", denied[0].ToolName)
	assert.Equal(t, "hook", denied[0].Source)
}

func TestQuery_SDKServer(t *testing.T) {
	calc := claude.SDKServer("calc", "1.0.0", claude.Tool(
		"add",
		"Add two numbers",
		func(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			a, err := req.RequireFloat("a")
			if err != nil {
				return mcpgo.NewToolResultError(err.Error()), nil
			}
			b, err := req.RequireFloat("b")
			if err != nil {
				return mcpgo.NewToolResultError(err.Error()), nil
			}

			return mcpgo.NewToolResultText(fmt.Sprint(a + b)), nil
		},
		mcpgo.WithNumber("a", mcpgo.Required()),
		mcpgo.WithNumber("b", mcpgo.Required()),
	))

	ch := testutil.NewFakeChannel()
	ch.OnWrite = func(f *testutil.FakeChannel, msg messages.Message) {
		switch m := msg.(type) {
		case *messages.UserMessage:
			if isPrompt(m) {
				f.Emit(testutil.MCPMessage("mcp-1", "calc", map[string]any{
					"jsonrpc": "2.0",
					"id":      1,
					"method":  "tools/call",
					"params": map[string]any{
						"name":      "add",
						"arguments": map[string]any{"a": 2, "b": 3},
					},
				}))
			}
		case *messages.ControlResponse:
			if m.RequestID == "mcp-1" {
				f.Emit(testutil.Result())
				f.Exit(nil)
			}
		}
	}
	opts := hermetic(t)
	opts.MCPServers = map[string]claude.MCPServerConfig{"calc": calc}

	msgCh, errCh := claude.Query(context.Background(), "add", opts, launching(ch, nil))
	_, errs := collect(t, msgCh, errCh)
	assert.Empty(t, errs)

	resp, ok := ch.Response("mcp-1")
	require.True(t, ok)
	rpc, ok := resp.Response["mcp_response"].(map[string]any)
	require.True(t, ok, "response: %v", resp.Response)
	result := rpc["result"].(map[string]any)
	content := result["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "5", content[0].(map[string]any)["text"])
}

func TestClient_NotConnected(t *testing.T) {
	client := claude.NewClient(hermetic(t), nil)
	ctx := context.Background()

	assert.ErrorIs(t, client.Send(ctx, "hi"), claude.ErrNotConnected)
	assert.ErrorIs(t, client.Interrupt(ctx), claude.ErrNotConnected)
	assert.ErrorIs(t, client.ReloadSettings(), claude.ErrNotConnected)
	_, err := client.SupportedModels(ctx)
	assert.ErrorIs(t, err, claude.ErrNotConnected)
	assert.Equal(t, "", client.SessionID())
	assert.Equal(t, querying.StateStarting, client.State())
	assert.NoError(t, client.Close(ctx))

	msgCh, errCh := client.Receive()
	_, errs := collect(t, msgCh, errCh)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], claude.ErrNotConnected)

	changes, cancel := client.SettingsChanges()
	defer cancel()
	_, open := <-changes
	assert.False(t, open)
}

func TestClient_Conversation(t *testing.T) {
	ch := testutil.NewFakeChannel()
	ch.InitResponse = map[string]any{"commands": []any{}}
	turns := 0
	ch.OnWrite = func(f *testutil.FakeChannel, msg messages.Message) {
		if !isPrompt(msg) {
			return
		}
		turns++
		f.Emit(testutil.AssistantText(fmt.Sprintf("turn %d", turns)))
		f.Emit(testutil.Result())
	}
	sessionID := "conversation-1"
	opts := hermetic(t)
	opts.SessionID = &sessionID
	client := claude.NewClient(opts, launching(ch, nil))
	ctx := context.Background()

	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	assert.ErrorIs(t, client.Connect(ctx), claude.ErrAlreadyConnected)
	assert.Equal(t, sessionID, client.SessionID())

	info, err := client.ServerInfo()
	require.NoError(t, err)
	assert.Contains(t, info, "commands")

	msgCh, _ := client.Receive()
	for turn := 1; turn <= 2; turn++ {
		require.NoError(t, client.Send(ctx, "next"))
		var got []messages.Message
		for len(got) < 2 {
			select {
			case msg := <-msgCh:
				got = append(got, msg)
			case <-time.After(waitFor):
				t.Fatalf("turn %d: got %d messages", turn, len(got))
			}
		}
		text := got[0].(*messages.AssistantMessage).Content[0].(*messages.TextBlock).Text
		assert.Equal(t, fmt.Sprintf("turn %d", turn), text)
		assert.IsType(t, &messages.ResultMessage{}, got[1])
	}
	assert.False(t, ch.InputClosed())

	require.NoError(t, client.Close(ctx))
	assert.Equal(t, querying.StateCancelled, client.State())
}

func TestClient_SupportedModels(t *testing.T) {
	ch := testutil.NewFakeChannel()
	ch.OnWrite = func(f *testutil.FakeChannel, msg messages.Message) {
		req, ok := msg.(*messages.ControlRequest)
		if !ok || req.Subtype != messages.SubtypeSupportedModels {
			return
		}
		f.Emit(testutil.Success(req.RequestID, map[string]any{
			"models": []any{
				map[string]any{"value": "opus", "displayName": "Opus", "description": "Most capable"},
				map[string]any{"value": "haiku", "displayName": "Haiku"},
			},
		}))
	}
	client := claude.NewClient(hermetic(t), launching(ch, nil))
	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	models, err := client.SupportedModels(ctx)

	require.NoError(t, err)
	assert.Equal(t, []claude.ModelInfo{
		{Value: "opus", DisplayName: "Opus", Description: "Most capable"},
		{Value: "haiku", DisplayName: "Haiku"},
	}, models)
}

func TestClient_SetPermissionMode(t *testing.T) {
	ch := testutil.NewFakeChannel()
	ch.OnWrite = func(f *testutil.FakeChannel, msg messages.Message) {
		if req, ok := msg.(*messages.ControlRequest); ok && req.Subtype == messages.SubtypeSetPermissionMode {
			f.Emit(testutil.Success(req.RequestID, map[string]any{}))
		}
	}
	client := claude.NewClient(hermetic(t), launching(ch, nil))
	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	require.NoError(t, client.SetPermissionMode(ctx, claude.PermissionModeAcceptEdits))
	reqs := ch.Requests(messages.SubtypeSetPermissionMode)
	require.Len(t, reqs, 1)
	assert.Equal(t, "acceptEdits", reqs[0].Payload["mode"])

	err := client.SetPermissionMode(ctx, claude.PermissionMode("yolo"))
	require.Error(t, err)
	assert.Len(t, ch.Requests(messages.SubtypeSetPermissionMode), 1)
}

func TestClient_ReloadSettings(t *testing.T) {
	opts := hermetic(t)
	opts.SettingSources = []claude.SettingSource{claude.SettingSourceProject}
	writeSettings(t, *opts.Cwd, `{"permissions": {"deny": ["Bash(rm:*)"]}}`)

	client := claude.NewClient(opts, launching(testutil.NewFakeChannel(), nil))
	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	rules := func() []string {
		var out []string
		for _, r := range client.Rules() {
			out = append(out, string(r.Behavior)+":"+r.String())
		}

		return out
	}
	assert.Equal(t, []string{"deny:Bash(rm:*)"}, rules())

	writeSettings(t, *opts.Cwd, `{"permissions": {"deny": ["Bash(rm:*)"], "allow": ["Read"]}}`)
	assert.Equal(t, []string{"deny:Bash(rm:*)"}, rules())

	require.NoError(t, client.ReloadSettings())
	assert.ElementsMatch(t, []string{"deny:Bash(rm:*)", "allow:Read"}, rules())
}

func TestBlockBashPatternHook(t *testing.T) {
	hook := claude.BlockBashPatternHook([]string{"rm -rf", "sudo"})
	call := func(tool, command string) *claude.HookOutput {
		out, err := hook(hooking.PreToolUseHookInput{
			HookEventName: string(claude.HookEventPreToolUse),
			ToolName:      tool,
			ToolInput:     map[string]any{"command": command},
		}, nil, claude.HookContext{Signal: context.Background()})
		require.NoError(t, err)

		return out
	}

	out := call("Bash", "sudo make install")
	require.NotNil(t, out)
	require.NotNil(t, out.HookSpecificOutput)
	assert.Equal(t, hooking.PermissionDeny, out.HookSpecificOutput.PermissionDecision)
	assert.Contains(t, out.HookSpecificOutput.PermissionDecisionReason, "sudo")

	assert.Nil(t, call("Bash", "ls -la"))
	assert.Nil(t, call("Read", "rm -rf /"))
}

func TestProtectPathsHook(t *testing.T) {
	hook := claude.ProtectPathsHook([]string{".env", "/etc/*"})
	tests := []struct {
		name    string
		tool    string
		input   map[string]any
		blocked bool
	}{
		{"write to protected base name", "Write", map[string]any{"file_path": "/repo/.env", "content": "x"}, true},
		{"edit under protected dir", "Edit", map[string]any{"file_path": "/etc/hosts", "old_string": "a", "new_string": "b"}, true},
		{"notebook elsewhere", "NotebookEdit", map[string]any{"notebook_path": "/repo/a.ipynb", "new_source": ""}, false},
		{"read is not a write", "Read", map[string]any{"file_path": "/repo/.env"}, false},
		{"untyped tool", "WebSearch", map[string]any{"query": ".env"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := hook(hooking.PreToolUseHookInput{
				HookEventName: string(claude.HookEventPreToolUse),
				ToolName:      tt.tool,
				ToolInput:     tt.input,
			}, nil, claude.HookContext{Signal: context.Background()})
			require.NoError(t, err)
			if tt.blocked {
				require.NotNil(t, out)
				assert.Equal(t, hooking.PermissionDeny, out.HookSpecificOutput.PermissionDecision)
			} else {
				assert.Nil(t, out)
			}
		})
	}
}

func TestDecodeToolInput(t *testing.T) {
	in, err := claude.DecodeToolInput("Bash", map[string]any{"command": "ls", "timeout": 30})
	require.NoError(t, err)
	bash, ok := in.(claude.BashInput)
	require.True(t, ok)
	assert.Equal(t, "ls", bash.Command)
	require.NotNil(t, bash.Timeout)
	assert.Equal(t, 30, *bash.Timeout)

	_, err = claude.DecodeToolInput("Bash", map[string]any{"command": 42})
	require.Error(t, err)

	_, err = claude.DecodeToolInput("mcp__calc__add", map[string]any{})
	require.Error(t, err)
}
