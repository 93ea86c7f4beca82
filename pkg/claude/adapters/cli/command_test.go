package cli_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/claude-control/pkg/claude/adapters/cli"
	"github.com/conneroisu/claude-control/pkg/claude/options"
)

func ptr[T any](v T) *T { return &v }

func flagValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}

	return "", false
}

func TestBuildArgs_Baseline(t *testing.T) {
	args, err := cli.BuildArgs(&options.AgentOptions{}, "s-1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"--output-format", "stream-json",
		"--input-format", "stream-json",
		"--verbose",
		"--permission-prompt-tool", "stdio",
		"--session-id", "s-1",
	}, args)
}

func TestBuildArgs_PassThrough(t *testing.T) {
	mode := options.PermissionModePlan
	opts := &options.AgentOptions{
		AllowedTools:    []options.BuiltinTool{options.ToolRead, options.ToolGrep},
		DisallowedTools: []options.BuiltinTool{options.ToolBash},
		Model:           ptr("sonnet"),
		MaxTurns:        ptr(4),
		SystemPrompt:    options.StringSystemPrompt("be terse"),
		PermissionMode:  &mode,
		Settings:        ptr("/tmp/s.json"),
		SettingSources:  []options.SettingSource{options.SettingSourceUser, options.SettingSourceProject},
		AddDirs:         []string{"/a", "/b"},
		ExtraArgs:       map[string]*string{"debug": nil, "betas": ptr("x")},
		MCPServers: map[string]options.MCPServerConfig{
			"calc": &options.SDKServerConfig{Name: "calc"},
			"web":  &options.HTTPServerConfig{Name: "web", URL: "http://localhost:9"},
		},
	}
	args, err := cli.BuildArgs(opts, "s-1")
	require.NoError(t, err)

	for flag, want := range map[string]string{
		"--allowedTools":    "Read,Grep",
		"--disallowedTools": "Bash",
		"--model":           "sonnet",
		"--max-turns":       "4",
		"--system-prompt":   "be terse",
		"--permission-mode": "plan",
		"--settings":        "/tmp/s.json",
		"--setting-sources": "user,project",
		"--add-dir":         "/a",
		"--betas":           "x",
	} {
		got, ok := flagValue(args, flag)
		require.True(t, ok, flag)
		assert.Equal(t, want, got, flag)
	}
	assert.Contains(t, args, "--debug")
	assert.Equal(t, []string{"--betas", "x", "--debug"}, args[len(args)-3:])

	raw, ok := flagValue(args, "--mcp-config")
	require.True(t, ok)
	var cfg map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))
	assert.Equal(t, "sdk", cfg["mcpServers"]["calc"]["type"])
	assert.Equal(t, "http://localhost:9", cfg["mcpServers"]["web"]["url"])
}

func TestBuildArgs_Sessions(t *testing.T) {
	tests := []struct {
		name      string
		opts      *options.AgentOptions
		sessionID string
		want      []string
		absent    []string
	}{
		{
			name:      "resume in place",
			opts:      &options.AgentOptions{Resume: ptr("s-1")},
			sessionID: "s-1",
			want:      []string{"--resume", "s-1"},
			absent:    []string{"--session-id", "--fork-session"},
		},
		{
			name:      "fork",
			opts:      &options.AgentOptions{Resume: ptr("s-1"), ForkSession: true},
			sessionID: "s-2",
			want:      []string{"--resume", "s-1", "--fork-session", "--session-id", "s-2"},
		},
		{
			name:      "continue",
			opts:      &options.AgentOptions{ContinueConversation: true},
			sessionID: "s-3",
			want:      []string{"--continue"},
			absent:    []string{"--session-id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := cli.BuildArgs(tt.opts, tt.sessionID)
			require.NoError(t, err)
			assert.Subset(t, args, tt.want)
			for _, flag := range tt.absent {
				assert.NotContains(t, args, flag)
			}
		})
	}
}

func TestNewCommand_ExplicitPath(t *testing.T) {
	cmd, err := cli.NewCommand(&options.AgentOptions{
		CLIPath: ptr("/opt/worker"),
		Cwd:     ptr("/work"),
		Env:     map[string]string{"B": "2", "A": "1"},
	}, "s-1")
	require.NoError(t, err)

	assert.Equal(t, "/opt/worker", cmd.Path)
	assert.Equal(t, "/work", cmd.Dir)
	assert.Equal(t, []string{"A=1", "B=2"}, cmd.Env)
	assert.Contains(t, cmd.String(), "/opt/worker --output-format stream-json")
}
