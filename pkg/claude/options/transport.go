package options

import (
	"time"

	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/ports"
)

// Defaults applied when the matching AgentOptions field is zero.
const (
	DefaultControlTimeout = 60 * time.Second
	DefaultHookTimeout    = 60 * time.Second
	DefaultInitTimeout    = 60 * time.Second
	DefaultTerminateGrace = 5 * time.Second
)

// AgentOptions configures a query or client session.
// Pointer fields are optional.
type AgentOptions struct {
	// === Worker behaviour (passed through as CLI flags) ===

	// AllowedTools lists tools the worker may use.
	AllowedTools []BuiltinTool

	// DisallowedTools lists tools the worker may not use.
	DisallowedTools []BuiltinTool

	// Model selects the model (optional).
	Model *string

	// MaxTurns limits conversation turns (optional).
	MaxTurns *int

	// SystemPrompt configures the system prompt.
	SystemPrompt SystemPromptConfig

	// PermissionMode sets the initial permission mode.
	PermissionMode *PermissionMode

	// Agents defines subagents announced at initialize.
	Agents map[string]AgentDefinition

	// MCPServers configures MCP servers.
	MCPServers map[string]MCPServerConfig

	// === Sessions ===

	// SessionID pins the new session's ID. A UUID is generated otherwise.
	SessionID *string

	// ContinueConversation continues the most recent worker session.
	ContinueConversation bool

	// Resume resumes the given session ID (optional).
	Resume *string

	// ForkSession forks Resume into a fresh session instead of
	// appending to it.
	ForkSession bool

	// ForkAt is the transcript entry the fork is cut at. Empty forks the
	// whole transcript.
	ForkAt string

	// SessionStore records the transcript. An in-memory store is used
	// when nil.
	SessionStore ports.SessionStore

	// IncludePartialMessages asks the worker for stream events.
	IncludePartialMessages bool

	// === Process ===

	// CLIPath is an explicit worker executable (optional).
	CLIPath *string

	// Cwd sets the worker's working directory (optional).
	Cwd *string

	// Settings is a settings file path passed to the worker (optional).
	Settings *string

	// SettingSources selects which settings scopes are loaded.
	SettingSources []SettingSource

	// AddDirs adds directories to the worker's context.
	AddDirs []string

	// Env adds environment variables to the worker.
	Env map[string]string

	// MaxBufferSize caps a single stdout line (optional).
	MaxBufferSize *int

	// StderrCallback receives each stderr line.
	StderrCallback func(string)

	// ExtraArgs passes additional CLI flags. A nil value is a bare flag.
	ExtraArgs map[string]*string

	// === Host behaviour ===

	// Logger receives structured logs. Defaults to a no-op logger.
	Logger *zap.Logger

	// ControlTimeout bounds each outbound control request.
	ControlTimeout time.Duration

	// HookTimeout is the default per-callback hook timeout.
	HookTimeout time.Duration

	// InitTimeout bounds the initialize handshake.
	InitTimeout time.Duration

	// TerminateGrace is the wait between SIGTERM and SIGKILL.
	TerminateGrace time.Duration

	// FailOnDecodeError turns undecodable stdout lines into a Failed
	// query instead of a reported, skipped line.
	FailOnDecodeError bool

	// SettingsHome overrides the directory holding user settings
	// (defaults to ~/.claude).
	SettingsHome *string

	// WatchSettings starts a settings file watcher. Changes are reported;
	// rules are re-read only on an explicit reload.
	WatchSettings bool
}

// GetLogger returns the configured logger or a no-op logger.
func (o *AgentOptions) GetLogger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}

	return o.Logger
}

// Mode returns the initial permission mode.
func (o *AgentOptions) Mode() PermissionMode {
	if o == nil || o.PermissionMode == nil {
		return PermissionModeDefault
	}

	return *o.PermissionMode
}

// Timeouts returns control, hook, init and terminate-grace durations with
// defaults applied.
func (o *AgentOptions) Timeouts() (control, hook, init, grace time.Duration) {
	control, hook, init, grace = DefaultControlTimeout, DefaultHookTimeout,
		DefaultInitTimeout, DefaultTerminateGrace
	if o == nil {
		return control, hook, init, grace
	}
	if o.ControlTimeout > 0 {
		control = o.ControlTimeout
	}
	if o.HookTimeout > 0 {
		hook = o.HookTimeout
	}
	if o.InitTimeout > 0 {
		init = o.InitTimeout
	}
	if o.TerminateGrace > 0 {
		grace = o.TerminateGrace
	}

	return control, hook, init, grace
}

// WorkDir returns Cwd or "".
func (o *AgentOptions) WorkDir() string {
	if o == nil || o.Cwd == nil {
		return ""
	}

	return *o.Cwd
}
