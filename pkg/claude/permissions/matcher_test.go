package permissions_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/claude-control/pkg/claude/permissions"
)

func TestRuleMatching(t *testing.T) {
	tests := []struct {
		rule  string
		tool  string
		input map[string]any
		want  bool
	}{
		{rule: "Bash", tool: "Bash", input: map[string]any{"command": "anything"}, want: true},
		{rule: "Bash(npm run:*)", tool: "Bash", input: map[string]any{"command": "npm run build"}, want: true},
		{rule: "Bash(npm run:*)", tool: "Bash", input: map[string]any{"command": "npm run"}, want: true},
		{rule: "Bash(npm run:*)", tool: "Bash", input: map[string]any{"command": "npm runx"}, want: false},
		{rule: "Bash(git status)", tool: "Bash", input: map[string]any{"command": " git status "}, want: true},
		{rule: "Bash(git status)", tool: "Bash", input: map[string]any{"command": "git status -s"}, want: false},
		{rule: "Read(src/**)", tool: "Read", input: map[string]any{"file_path": "/repo/src/a/b.go"}, want: true},
		{rule: "Read(src/*.go)", tool: "Read", input: map[string]any{"file_path": "/repo/src/a/b.go"}, want: false},
		{rule: "Read(**/*.env)", tool: "Read", input: map[string]any{"file_path": "/repo/.env"}, want: true},
		{rule: "Read(**/*.env)", tool: "Read", input: map[string]any{"file_path": "/other/.env"}, want: false},
		{rule: "Read(/repo/**/*.env)", tool: "Read", input: map[string]any{"file_path": "/repo/prod.env"}, want: true},
		{rule: "Edit(/etc/**)", tool: "Edit", input: map[string]any{"file_path": "/repo/../etc/passwd"}, want: true},
		{rule: "NotebookEdit(nb/*.ipynb)", tool: "NotebookEdit", input: map[string]any{"notebook_path": "nb/x.ipynb"}, want: true},
		{rule: "WebFetch(domain:example.com)", tool: "WebFetch", input: map[string]any{"url": "https://docs.example.com/x"}, want: true},
		{rule: "WebFetch(domain:example.com)", tool: "WebFetch", input: map[string]any{"url": "https://example.org"}, want: false},
		{rule: "mcp__calc", tool: "mcp__calc__add", want: true},
		{rule: "mcp__calc", tool: "mcp__calculator__add", want: false},
		{rule: "mcp__calc__add", tool: "mcp__calc__add", want: true},
		{rule: "Write", tool: "Edit", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.tool, func(t *testing.T) {
			r := rule(t, tt.rule, permissions.PermissionBehaviorAllow, permissions.PermissionDestinationSession)
			a := permissions.NewArbiter(&permissions.PermissionsConfig{
				Settings: permissions.Snapshot{},
				Cwd:      "/repo",
			})
			require.NoError(t, a.ApplyUpdates(sessionUpdates([]permissions.PermissionRule{r})...))

			verdict, err := a.Evaluate(context.Background(), permissions.Request{ToolName: tt.tool, Input: tt.input})
			require.NoError(t, err)
			assert.Equal(t, tt.want, verdict.IsAllowed())
		})
	}
}

func TestParseRule(t *testing.T) {
	v, err := permissions.ParseRule("Bash(npm run:*)")
	require.NoError(t, err)
	assert.Equal(t, "Bash", v.ToolName)
	require.NotNil(t, v.RuleContent)
	assert.Equal(t, "npm run:*", *v.RuleContent)
	assert.Equal(t, "Bash(npm run:*)", v.String())

	v, err = permissions.ParseRule(" Read ")
	require.NoError(t, err)
	assert.Equal(t, "Read", v.ToolName)
	assert.Nil(t, v.RuleContent)

	for _, bad := range []string{"", "Bash(ls", "(ls)"} {
		_, err := permissions.ParseRule(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseSuggestionsAndWire(t *testing.T) {
	raw := []map[string]any{
		{
			"type":        "addRules",
			"rules":       []any{map[string]any{"toolName": "Bash", "ruleContent": "ls:*"}},
			"behavior":    "allow",
			"destination": "session",
		},
		{"type": "setMode", "mode": "acceptEdits", "destination": "session"},
		{"type": "addDirectories", "directories": []any{"/data"}, "destination": "localSettings"},
	}

	updates := permissions.ParseSuggestions(raw)
	require.Len(t, updates, 3)
	assert.Equal(t, permissions.UpdateAddRules, updates[0].Type)
	assert.Equal(t, "Bash(ls:*)", updates[0].Rules[0].String())
	require.NotNil(t, updates[1].Mode)
	assert.Equal(t, "acceptEdits", string(*updates[1].Mode))
	assert.Equal(t, []string{"/data"}, updates[2].Directories)

	assert.Equal(t, map[string]any{
		"type":        "addRules",
		"rules":       []any{map[string]any{"toolName": "Bash", "ruleContent": "ls:*"}},
		"behavior":    "allow",
		"destination": "session",
	}, updates[0].Wire())
	assert.Equal(t, map[string]any{
		"type":        "addDirectories",
		"directories": []string{"/data"},
		"destination": "localSettings",
	}, updates[2].Wire())
}
