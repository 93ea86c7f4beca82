package options

import "fmt"

// BuiltinTool names one of the worker's built-in tools.
type BuiltinTool string

// Execution tools
const (
	ToolBash       BuiltinTool = "Bash"
	ToolBashOutput BuiltinTool = "BashOutput"
	ToolKillShell  BuiltinTool = "KillShell"
)

// File tools
const (
	ToolRead         BuiltinTool = "Read"
	ToolWrite        BuiltinTool = "Write"
	ToolEdit         BuiltinTool = "Edit"
	ToolMultiEdit    BuiltinTool = "MultiEdit"
	ToolNotebookEdit BuiltinTool = "NotebookEdit"
	ToolGlob         BuiltinTool = "Glob"
	ToolGrep         BuiltinTool = "Grep"
)

// Agent tools
const (
	ToolTask         BuiltinTool = "Task"
	ToolExitPlanMode BuiltinTool = "ExitPlanMode"
	ToolTodoWrite    BuiltinTool = "TodoWrite"
	ToolSlashCommand BuiltinTool = "SlashCommand"
)

// Web and MCP resource tools
const (
	ToolWebFetch         BuiltinTool = "WebFetch"
	ToolWebSearch        BuiltinTool = "WebSearch"
	ToolListMcpResources BuiltinTool = "ListMcpResources"
	ToolReadMcpResource  BuiltinTool = "ReadMcpResource"
)

// WithMatcher creates a rule pattern such as "Bash(git:*)".
func (t BuiltinTool) WithMatcher(matcher string) string {
	return fmt.Sprintf("%s(%s)", t, matcher)
}

// String returns the tool name.
func (t BuiltinTool) String() string {
	return string(t)
}

// ToolNames converts tools to plain names, keeping order.
func ToolNames(tools []BuiltinTool) []string {
	if len(tools) == 0 {
		return nil
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = string(t)
	}

	return names
}
