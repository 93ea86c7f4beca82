package claude

import "github.com/conneroisu/claude-control/pkg/claude/options"

// Configuration types re-exported from package options.
type (
	AgentOptions       = options.AgentOptions
	PermissionMode     = options.PermissionMode
	SettingSource      = options.SettingSource
	AgentDefinition    = options.AgentDefinition
	BuiltinTool        = options.BuiltinTool
	MCPServerConfig    = options.MCPServerConfig
	StdioServerConfig  = options.StdioServerConfig
	SSEServerConfig    = options.SSEServerConfig
	HTTPServerConfig   = options.HTTPServerConfig
	SDKServerConfig    = options.SDKServerConfig
	StringSystemPrompt = options.StringSystemPrompt
	PresetSystemPrompt = options.PresetSystemPrompt
)

// Permission modes.
const (
	PermissionModeDefault           = options.PermissionModeDefault
	PermissionModeAcceptEdits       = options.PermissionModeAcceptEdits
	PermissionModePlan              = options.PermissionModePlan
	PermissionModeBypassPermissions = options.PermissionModeBypassPermissions
)

// Settings scopes.
const (
	SettingSourceUser    = options.SettingSourceUser
	SettingSourceProject = options.SettingSourceProject
	SettingSourceLocal   = options.SettingSourceLocal
)
