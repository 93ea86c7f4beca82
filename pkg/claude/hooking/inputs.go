package hooking

import (
	"encoding/json"
	"fmt"
)

// BaseHookInput contains fields common to all hook inputs.
type BaseHookInput struct {
	SessionID      string  `json:"session_id"`
	TranscriptPath string  `json:"transcript_path"`
	Cwd            string  `json:"cwd"`
	PermissionMode *string `json:"permission_mode,omitempty"`
}

// HookInput is the typed input of one event. The concrete type is one of the
// *HookInput structs in this package.
type HookInput interface {
	// Event returns the event this input belongs to.
	Event() HookEvent
	// subject returns the value matchers are tested against, and false for
	// events that carry no matcher subject.
	subject() (string, bool)
}

// PreToolUseHookInput is the input for PreToolUse hooks.
type PreToolUseHookInput struct {
	BaseHookInput

	// HookEventName is always "PreToolUse"
	HookEventName string `json:"hook_event_name"`

	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
}

// Event implements HookInput.
func (PreToolUseHookInput) Event() HookEvent { return HookEventPreToolUse }

func (in PreToolUseHookInput) subject() (string, bool) { return in.ToolName, true }

// PostToolUseHookInput is the input for PostToolUse hooks.
type PostToolUseHookInput struct {
	BaseHookInput

	// HookEventName is always "PostToolUse"
	HookEventName string `json:"hook_event_name"`

	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`

	// ToolResponse contains the tool's output.
	// Intentionally flexible - varies by tool.
	ToolResponse any `json:"tool_response"`
}

// Event implements HookInput.
func (PostToolUseHookInput) Event() HookEvent { return HookEventPostToolUse }

func (in PostToolUseHookInput) subject() (string, bool) { return in.ToolName, true }

// NotificationHookInput is the input for Notification hooks.
type NotificationHookInput struct {
	BaseHookInput

	// HookEventName is always "Notification"
	HookEventName string `json:"hook_event_name"`

	Message          string  `json:"message"`
	Title            *string `json:"title,omitempty"`
	NotificationType string  `json:"notification_type,omitempty"`
}

// Event implements HookInput.
func (NotificationHookInput) Event() HookEvent { return HookEventNotification }

func (in NotificationHookInput) subject() (string, bool) { return in.NotificationType, true }

// UserPromptSubmitHookInput is the input for UserPromptSubmit
// hooks.
type UserPromptSubmitHookInput struct {
	BaseHookInput

	// HookEventName is always "UserPromptSubmit"
	HookEventName string `json:"hook_event_name"`

	// Prompt is the user's input text
	Prompt string `json:"prompt"`
}

// Event implements HookInput.
func (UserPromptSubmitHookInput) Event() HookEvent { return HookEventUserPromptSubmit }

func (UserPromptSubmitHookInput) subject() (string, bool) { return "", false }

// SessionStartSource represents the source of a session start.
type SessionStartSource string

const (
	// SessionStartSourceStartup indicates initial startup.
	SessionStartSourceStartup SessionStartSource = "startup"

	// SessionStartSourceResume indicates session resume.
	SessionStartSourceResume SessionStartSource = "resume"

	// SessionStartSourceClear indicates session clear.
	SessionStartSourceClear SessionStartSource = "clear"

	// SessionStartSourceCompact indicates post-compaction.
	SessionStartSourceCompact SessionStartSource = "compact"
)

// SessionStartHookInput is the input for SessionStart hooks.
type SessionStartHookInput struct {
	BaseHookInput

	// HookEventName is always "SessionStart"
	HookEventName string `json:"hook_event_name"`

	Source SessionStartSource `json:"source"`
}

// Event implements HookInput.
func (SessionStartHookInput) Event() HookEvent { return HookEventSessionStart }

func (in SessionStartHookInput) subject() (string, bool) { return string(in.Source), true }

// SessionEndHookInput is the input for SessionEnd hooks.
type SessionEndHookInput struct {
	BaseHookInput

	// HookEventName is always "SessionEnd"
	HookEventName string `json:"hook_event_name"`

	Reason string `json:"reason"`
}

// Event implements HookInput.
func (SessionEndHookInput) Event() HookEvent { return HookEventSessionEnd }

func (in SessionEndHookInput) subject() (string, bool) { return in.Reason, true }

// StopHookInput is the input for Stop hooks.
type StopHookInput struct {
	BaseHookInput

	// HookEventName is always "Stop"
	HookEventName string `json:"hook_event_name"`

	StopHookActive bool `json:"stop_hook_active"`
}

// Event implements HookInput.
func (StopHookInput) Event() HookEvent { return HookEventStop }

func (StopHookInput) subject() (string, bool) { return "", false }

// SubagentStopHookInput is the input for SubagentStop hooks.
type SubagentStopHookInput struct {
	BaseHookInput

	// HookEventName is always "SubagentStop"
	HookEventName string `json:"hook_event_name"`

	StopHookActive bool `json:"stop_hook_active"`
}

// Event implements HookInput.
func (SubagentStopHookInput) Event() HookEvent { return HookEventSubagentStop }

func (SubagentStopHookInput) subject() (string, bool) { return "", false }

// PreCompactHookInput is the input for PreCompact hooks.
type PreCompactHookInput struct {
	BaseHookInput

	// HookEventName is always "PreCompact"
	HookEventName string `json:"hook_event_name"`

	// Trigger indicates compaction type ("manual" or "auto")
	Trigger            string  `json:"trigger"`
	CustomInstructions *string `json:"custom_instructions,omitempty"`
}

// Event implements HookInput.
func (PreCompactHookInput) Event() HookEvent { return HookEventPreCompact }

func (in PreCompactHookInput) subject() (string, bool) { return in.Trigger, true }

// DecodeInput converts the raw input of a hook_callback control request into
// its typed form, selected by hook_event_name.
func DecodeInput(raw map[string]any) (HookInput, error) {
	name, _ := raw["hook_event_name"].(string)
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal hook input: %w", err)
	}
	switch HookEvent(name) {
	case HookEventPreToolUse:
		return decodeAs[PreToolUseHookInput](data)
	case HookEventPostToolUse:
		return decodeAs[PostToolUseHookInput](data)
	case HookEventNotification:
		return decodeAs[NotificationHookInput](data)
	case HookEventUserPromptSubmit:
		return decodeAs[UserPromptSubmitHookInput](data)
	case HookEventSessionStart:
		return decodeAs[SessionStartHookInput](data)
	case HookEventSessionEnd:
		return decodeAs[SessionEndHookInput](data)
	case HookEventStop:
		return decodeAs[StopHookInput](data)
	case HookEventSubagentStop:
		return decodeAs[SubagentStopHookInput](data)
	case HookEventPreCompact:
		return decodeAs[PreCompactHookInput](data)
	default:
		return nil, fmt.Errorf("unknown hook event %q", name)
	}
}

func decodeAs[T HookInput](data []byte) (HookInput, error) {
	var in T
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode %T: %w", in, err)
	}

	return in, nil
}
