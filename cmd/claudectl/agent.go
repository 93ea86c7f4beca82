package main

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/claude-control/pkg/claude"
	"github.com/conneroisu/claude-control/pkg/claude/options"
)

// agentFlags configure a worker session.
type agentFlags struct {
	model           string
	systemPrompt    string
	permissionMode  string
	maxTurns        int
	allowedTools    []string
	disallowedTools []string
	blockPatterns   []string
	protectPaths    []string
	resume          string
	fork            bool
	forkAt          string
	watchSettings   bool
}

func (f *agentFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.model, "model", "", "model to use")
	flags.StringVar(&f.systemPrompt, "system-prompt", "", "replace the system prompt")
	flags.StringVarP(&f.permissionMode, "permission-mode", "p", "",
		"default, acceptEdits, plan or bypassPermissions")
	flags.IntVar(&f.maxTurns, "max-turns", 0, "turn limit (0 for none)")
	flags.StringSliceVar(&f.allowedTools, "allowed-tools", nil, "tools the worker may use")
	flags.StringSliceVar(&f.disallowedTools, "disallowed-tools", nil, "tools the worker may not use")
	flags.StringSliceVar(&f.blockPatterns, "block", nil, "deny Bash commands containing these substrings")
	flags.StringSliceVar(&f.protectPaths, "protect", nil, "deny writes to paths matching these globs")
	flags.StringVar(&f.resume, "resume", "", "session to resume")
	flags.BoolVar(&f.fork, "fork", false, "fork the resumed session instead of continuing it")
	flags.StringVar(&f.forkAt, "fork-at", "", "transcript entry the fork is cut at")
	flags.BoolVar(&f.watchSettings, "watch-settings", false, "report settings file changes")
}

// options builds agent options around the shared app flags and store.
func (a *app) options(f *agentFlags) (*claude.AgentOptions, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	opts := &claude.AgentOptions{
		Logger:          a.logger(),
		SessionStore:    store,
		AllowedTools:    builtinTools(f.allowedTools),
		DisallowedTools: builtinTools(f.disallowedTools),
		ForkSession:     f.fork,
		ForkAt:          f.forkAt,
		WatchSettings:   f.watchSettings,
	}
	if a.cliPath != "" {
		opts.CLIPath = &a.cliPath
	}
	if a.cwd != "" {
		opts.Cwd = &a.cwd
	}
	if f.model != "" {
		opts.Model = &f.model
	}
	if f.systemPrompt != "" {
		opts.SystemPrompt = claude.StringSystemPrompt(f.systemPrompt)
	}
	if f.permissionMode != "" {
		mode := claude.PermissionMode(f.permissionMode)
		opts.PermissionMode = &mode
	}
	if f.maxTurns > 0 {
		opts.MaxTurns = &f.maxTurns
	}
	if f.resume != "" {
		opts.Resume = &f.resume
	}

	return opts, nil
}

// hooks installs the guard hooks the flags ask for.
func (f *agentFlags) hooks() map[claude.HookEvent][]claude.HookMatcher {
	var matchers []claude.HookMatcher
	if len(f.blockPatterns) > 0 {
		matchers = append(matchers, claude.HookMatcher{
			Matcher: string(options.ToolBash),
			Hooks:   []claude.HookCallback{claude.BlockBashPatternHook(f.blockPatterns)},
		})
	}
	if len(f.protectPaths) > 0 {
		matchers = append(matchers, claude.HookMatcher{
			Matcher: "Write|Edit|MultiEdit|NotebookEdit",
			Hooks:   []claude.HookCallback{claude.ProtectPathsHook(f.protectPaths)},
		})
	}
	if len(matchers) == 0 {
		return nil
	}

	return map[claude.HookEvent][]claude.HookMatcher{claude.HookEventPreToolUse: matchers}
}

func builtinTools(names []string) []claude.BuiltinTool {
	if len(names) == 0 {
		return nil
	}
	tools := make([]claude.BuiltinTool, len(names))
	for i, name := range names {
		tools[i] = claude.BuiltinTool(name)
	}

	return tools
}
