// Package hooking dispatches lifecycle hook callbacks. Callbacks are
// registered per event behind a matcher, run in registration order under a
// deadline, and their outputs are merged into a single Outcome.
package hooking

import (
	"context"
	"time"
)

// HookEvent represents different hook trigger points.
type HookEvent string

const (
	// HookEventPreToolUse fires before a tool is executed.
	HookEventPreToolUse HookEvent = "PreToolUse"

	// HookEventPostToolUse fires after a tool executes.
	HookEventPostToolUse HookEvent = "PostToolUse"

	// HookEventNotification fires for system notifications.
	HookEventNotification HookEvent = "Notification"

	// HookEventUserPromptSubmit fires when user submits a prompt.
	HookEventUserPromptSubmit HookEvent = "UserPromptSubmit"

	// HookEventSessionStart fires when a session begins.
	HookEventSessionStart HookEvent = "SessionStart"

	// HookEventSessionEnd fires when a session ends.
	HookEventSessionEnd HookEvent = "SessionEnd"

	// HookEventStop fires when execution stops.
	HookEventStop HookEvent = "Stop"

	// HookEventSubagentStop fires when a subagent stops.
	HookEventSubagentStop HookEvent = "SubagentStop"

	// HookEventPreCompact fires before conversation compaction.
	HookEventPreCompact HookEvent = "PreCompact"
)

// HookEvents lists every event in callback ID assignment order.
var HookEvents = []HookEvent{
	HookEventPreToolUse,
	HookEventPostToolUse,
	HookEventNotification,
	HookEventUserPromptSubmit,
	HookEventSessionStart,
	HookEventSessionEnd,
	HookEventStop,
	HookEventSubagentStop,
	HookEventPreCompact,
}

// Valid reports whether e is one of the known events.
func (e HookEvent) Valid() bool {
	for _, known := range HookEvents {
		if e == known {
			return true
		}
	}

	return false
}

// HookContext provides context for hook execution.
type HookContext struct {
	// Signal is cancelled when the callback's deadline passes or the
	// dispatch is abandoned. Long-running hooks should watch Signal.Done().
	Signal context.Context
}

// HookCallback is a function that handles hook events. A nil output with a
// nil error means "no opinion".
type HookCallback func(
	input HookInput,
	toolUseID *string,
	ctx HookContext,
) (*HookOutput, error)

// HookMatcher defines when a hook should execute.
type HookMatcher struct {
	// Matcher is matched against the event's subject (tool name, compaction
	// trigger, session source, end reason or notification type). Empty and
	// "*" match everything; "A|B" is an alternation; anything else is an
	// anchored regular expression.
	Matcher string

	// Hooks are callbacks to execute when matcher applies, in order.
	Hooks []HookCallback

	// Timeout overrides the dispatcher default for these hooks.
	Timeout time.Duration
}

// Decision values accepted in HookOutput.Decision.
const (
	DecisionBlock = "block"
)

// PermissionDecision is a PreToolUse hook's opinion on a tool call.
type PermissionDecision string

const (
	// PermissionAllow records approval. It is not decisive.
	PermissionAllow PermissionDecision = "allow"
	// PermissionDeny blocks the tool call.
	PermissionDeny PermissionDecision = "deny"
	// PermissionAsk records that the user should be asked. It is not
	// decisive.
	PermissionAsk PermissionDecision = "ask"
)

// HookOutput is the structured result of one callback.
type HookOutput struct {
	// Continue set to false stops the agent after this hook.
	Continue       *bool  `json:"continue,omitempty"`
	SuppressOutput bool   `json:"suppressOutput,omitempty"`
	StopReason     string `json:"stopReason,omitempty"`
	// Decision "block" blocks the triggering action.
	Decision      string `json:"decision,omitempty"`
	SystemMessage string `json:"systemMessage,omitempty"`
	Reason        string `json:"reason,omitempty"`

	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// SpecificOutput carries the event-specific part of a hook output.
type SpecificOutput struct {
	HookEventName            HookEvent          `json:"hookEventName"`
	PermissionDecision       PermissionDecision `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string             `json:"permissionDecisionReason,omitempty"`
	UpdatedInput             map[string]any     `json:"updatedInput,omitempty"`
	AdditionalContext        string             `json:"additionalContext,omitempty"`
}

// Block returns an output that blocks the triggering action.
func Block(reason string) *HookOutput {
	return &HookOutput{Decision: DecisionBlock, Reason: reason}
}

// Stop returns an output that stops the agent.
func Stop(reason string) *HookOutput {
	stop := false

	return &HookOutput{Continue: &stop, StopReason: reason}
}

// DenyTool returns a PreToolUse output denying the tool call.
func DenyTool(reason string) *HookOutput {
	return &HookOutput{
		HookSpecificOutput: &SpecificOutput{
			HookEventName:            HookEventPreToolUse,
			PermissionDecision:       PermissionDeny,
			PermissionDecisionReason: reason,
		},
	}
}

// AddContext returns an output that contributes additional context for the
// given event.
func AddContext(event HookEvent, text string) *HookOutput {
	return &HookOutput{
		HookSpecificOutput: &SpecificOutput{
			HookEventName:     event,
			AdditionalContext: text,
		},
	}
}
