// Package options holds the configuration types shared by the control plane.
package options

// PermissionMode is the session-wide permission posture.
type PermissionMode string

const (
	// PermissionModeDefault consults rules and then the permission callback.
	PermissionModeDefault PermissionMode = "default"
	// PermissionModeAcceptEdits allows edit-class tools without asking.
	PermissionModeAcceptEdits PermissionMode = "acceptEdits"
	// PermissionModePlan allows read-only tools only.
	PermissionModePlan PermissionMode = "plan"
	// PermissionModeBypassPermissions allows every tool.
	PermissionModeBypassPermissions PermissionMode = "bypassPermissions"
)

// Valid reports whether m is one of the known modes.
func (m PermissionMode) Valid() bool {
	switch m {
	case PermissionModeDefault,
		PermissionModeAcceptEdits,
		PermissionModePlan,
		PermissionModeBypassPermissions:
		return true
	}

	return false
}

// SettingSource specifies the origin of configuration settings.
type SettingSource string

const (
	// SettingSourceUser is ~/.claude/settings.json.
	SettingSourceUser SettingSource = "user"
	// SettingSourceProject is <cwd>/.claude/settings.json.
	SettingSourceProject SettingSource = "project"
	// SettingSourceLocal is <cwd>/.claude/settings.local.json.
	SettingSourceLocal SettingSource = "local"
)

// AgentDefinition defines a subagent announced to the worker at initialize.
type AgentDefinition struct {
	Description string
	Prompt      string
	Tools       []BuiltinTool
	Model       *string
}

// SystemPromptConfig is a discriminated union for system prompts.
type SystemPromptConfig interface {
	systemPromptConfig()
}

// StringSystemPrompt replaces the worker's system prompt.
type StringSystemPrompt string

func (StringSystemPrompt) systemPromptConfig() {}

// PresetSystemPrompt selects a worker preset, optionally extended.
type PresetSystemPrompt struct {
	Preset string
	Append *string
}

func (PresetSystemPrompt) systemPromptConfig() {}
