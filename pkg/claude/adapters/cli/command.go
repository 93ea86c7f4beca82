package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/conneroisu/claude-control/pkg/claude/options"
)

// NewCommand resolves the worker executable and assembles its invocation
// for sessionID.
func NewCommand(opts *options.AgentOptions, sessionID string) (Command, error) {
	if opts == nil {
		opts = &options.AgentOptions{}
	}
	path, err := findCLI(opts.CLIPath)
	if err != nil {
		return Command{}, fmt.Errorf("CLI discovery failed: %w", err)
	}
	args, err := BuildArgs(opts, sessionID)
	if err != nil {
		return Command{}, fmt.Errorf("command construction failed: %w", err)
	}
	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}
	slices.Sort(env)

	return Command{Path: path, Args: args, Env: env, Dir: opts.WorkDir()}, nil
}

// BuildArgs returns the worker's flags. The permission prompt is always
// routed over stdio so tool requests arrive as control requests.
func BuildArgs(opts *options.AgentOptions, sessionID string) ([]string, error) {
	args := []string{
		"--output-format", "stream-json",
		"--input-format", "stream-json",
		"--verbose",
		"--permission-prompt-tool", "stdio",
	}

	args = addSystemPromptArgs(args, opts)
	args = addToolArgs(args, opts)
	args = addModelArgs(args, opts)
	args = addPermissionArgs(args, opts)
	args = addSessionArgs(args, opts, sessionID)
	args = addSettingArgs(args, opts)
	args = addDirectoryArgs(args, opts)

	args, err := addMCPArgs(args, opts)
	if err != nil {
		return nil, err
	}

	return addExtraArgs(args, opts), nil
}

func addSystemPromptArgs(args []string, opts *options.AgentOptions) []string {
	switch sp := opts.SystemPrompt.(type) {
	case options.StringSystemPrompt:
		args = append(args, "--system-prompt", string(sp))
	case options.PresetSystemPrompt:
		if sp.Append != nil {
			args = append(args, "--append-system-prompt", *sp.Append)
		}
	}

	return args
}

// addToolArgs passes both lists; the worker gives the deny list precedence.
func addToolArgs(args []string, opts *options.AgentOptions) []string {
	if len(opts.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(options.ToolNames(opts.AllowedTools), ","))
	}
	if len(opts.DisallowedTools) > 0 {
		args = append(args, "--disallowedTools", strings.Join(options.ToolNames(opts.DisallowedTools), ","))
	}

	return args
}

func addModelArgs(args []string, opts *options.AgentOptions) []string {
	if opts.Model != nil {
		args = append(args, "--model", *opts.Model)
	}
	if opts.MaxTurns != nil {
		args = append(args, "--max-turns", fmt.Sprintf("%d", *opts.MaxTurns))
	}
	if opts.IncludePartialMessages {
		args = append(args, "--include-partial-messages")
	}

	return args
}

func addPermissionArgs(args []string, opts *options.AgentOptions) []string {
	if opts.PermissionMode != nil {
		args = append(args, "--permission-mode", string(*opts.PermissionMode))
	}

	return args
}

// addSessionArgs pins the session ID. When forking, the resumed session
// is copied into sessionID.
func addSessionArgs(args []string, opts *options.AgentOptions, sessionID string) []string {
	if opts.ContinueConversation {
		args = append(args, "--continue")
	}
	if opts.Resume != nil {
		args = append(args, "--resume", *opts.Resume)
		if opts.ForkSession {
			args = append(args, "--fork-session")
		}
	}
	resumingInPlace := opts.Resume != nil && !opts.ForkSession
	if sessionID != "" && !resumingInPlace && !opts.ContinueConversation {
		args = append(args, "--session-id", sessionID)
	}

	return args
}

func addSettingArgs(args []string, opts *options.AgentOptions) []string {
	if opts.Settings != nil {
		args = append(args, "--settings", *opts.Settings)
	}
	if len(opts.SettingSources) == 0 {
		return args
	}
	sources := make([]string, len(opts.SettingSources))
	for i, s := range opts.SettingSources {
		sources[i] = string(s)
	}

	return append(args, "--setting-sources", strings.Join(sources, ","))
}

// addDirectoryArgs passes each directory separately to keep ordering.
func addDirectoryArgs(args []string, opts *options.AgentOptions) []string {
	for _, dir := range opts.AddDirs {
		args = append(args, "--add-dir", dir)
	}

	return args
}

func addMCPArgs(args []string, opts *options.AgentOptions) ([]string, error) {
	if len(opts.MCPServers) == 0 {
		return args, nil
	}
	servers := make(map[string]any, len(opts.MCPServers))
	for name, cfg := range opts.MCPServers {
		servers[name] = cfg.Wire()
	}
	raw, err := json.Marshal(map[string]any{"mcpServers": servers})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal MCP config: %w", err)
	}

	return append(args, "--mcp-config", string(raw)), nil
}

// addExtraArgs appends user flags in sorted order. A nil value is a bare
// flag.
func addExtraArgs(args []string, opts *options.AgentOptions) []string {
	flags := make([]string, 0, len(opts.ExtraArgs))
	for flag := range opts.ExtraArgs {
		flags = append(flags, flag)
	}
	slices.Sort(flags)
	for _, flag := range flags {
		if value := opts.ExtraArgs[flag]; value != nil {
			args = append(args, "--"+flag, *value)
		} else {
			args = append(args, "--"+flag)
		}
	}

	return args
}
