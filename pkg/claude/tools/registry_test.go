package tools_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/claude/tools"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

func TestBuiltinRegistry_Classification(t *testing.T) {
	r := tools.NewBuiltinRegistry()
	assert.Len(t, r.Names(), 18)

	tests := []struct {
		name      string
		readOnly  bool
		editClass bool
	}{
		{"Read", true, false},
		{"Grep", true, false},
		{"ExitPlanMode", true, false},
		{"Bash", false, false},
		{"Task", false, false},
		{"Write", false, true},
		{"NotebookEdit", false, true},
		{"mcp__calc__add", false, false},
		{"Unknown", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.readOnly, r.IsReadOnly(tt.name))
			assert.Equal(t, tt.editClass, r.IsEditClass(tt.name))
		})
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := tools.NewBuiltinRegistry()

	require.NoError(t, r.Validate("Bash", "t1", map[string]any{"command": "ls"}))
	require.NoError(t, r.Validate("Unknown", "t1", map[string]any{"anything": 1}))

	err := r.Validate("Bash", "t1", map[string]any{"timeout": 10})
	require.Error(t, err)
	assert.True(t, clauderrs.IsToolError(err))
	assert.Contains(t, err.Error(), "command")

	err = r.Validate("NotebookEdit", "t2", map[string]any{
		"notebook_path": "a.ipynb",
		"new_source":    "x",
		"edit_mode":     "append",
	})
	require.Error(t, err)
	var toolErr *clauderrs.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "t2", toolErr.ToolUseID())
	assert.Equal(t, clauderrs.ErrCodeToolInputInvalid, toolErr.Code())
}

func TestRegistry_RegisterRejectsBadSchema(t *testing.T) {
	r := tools.NewRegistry()
	err := r.Register(tools.Spec{Name: "Broken", Schema: map[string]any{"type": 7}}, nil)
	assert.True(t, clauderrs.IsValidationError(err))

	err = r.Register(tools.Spec{}, nil)
	assert.True(t, clauderrs.IsValidationError(err))
}

func TestRegistry_Execute(t *testing.T) {
	r := tools.NewBuiltinRegistry()
	var calls []ports.ToolCall
	require.NoError(t, r.SetExecutor("Read", ports.ToolExecutorFunc(
		func(_ context.Context, call ports.ToolCall) (ports.ToolResult, error) {
			calls = append(calls, call)

			return ports.ToolResult{Content: "contents of " + call.Input["file_path"].(string)}, nil
		})))
	require.Error(t, r.SetExecutor("Nope", nil))

	res, err := r.Execute(context.Background(), ports.ToolCall{
		ToolName:  "Read",
		ToolUseID: "t1",
		Input:     map[string]any{"file_path": "/a"},
	})
	require.NoError(t, err)
	assert.Equal(t, "contents of /a", res.Content)

	_, err = r.Execute(context.Background(), ports.ToolCall{ToolName: "Read", ToolUseID: "t2", Input: map[string]any{}})
	assert.True(t, clauderrs.IsToolError(err))
	assert.Len(t, calls, 1, "invalid input must not reach the executor")

	_, err = r.Execute(context.Background(), ports.ToolCall{ToolName: "Write", ToolUseID: "t3"})
	assert.True(t, clauderrs.IsToolError(err))
}

func TestRegistry_ExecuteWrapsExecutorErrors(t *testing.T) {
	r := tools.NewRegistry()
	boom := errors.New("disk on fire")
	require.NoError(t, r.Register(tools.Spec{Name: "Fail"}, ports.ToolExecutorFunc(
		func(context.Context, ports.ToolCall) (ports.ToolResult, error) {
			return ports.ToolResult{}, boom
		})))

	_, err := r.Execute(context.Background(), ports.ToolCall{ToolName: "Fail", ToolUseID: "t1"})
	require.ErrorIs(t, err, boom)
	var toolErr *clauderrs.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, clauderrs.ErrCodeToolExecutionFailed, toolErr.Code())
	assert.False(t, clauderrs.IsFatal(err))
}

func TestParseMCPToolName(t *testing.T) {
	server, tool, ok := tools.ParseMCPToolName(tools.MCPToolName("calc", "add_numbers"))
	require.True(t, ok)
	assert.Equal(t, "calc", server)
	assert.Equal(t, "add_numbers", tool)

	for _, name := range []string{"Bash", "mcp__calc", "mcp____add", "mcp__calc__"} {
		_, _, ok := tools.ParseMCPToolName(name)
		assert.False(t, ok, name)
	}
}
