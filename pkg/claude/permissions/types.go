// Package permissions decides whether a tool invocation may run. The Arbiter
// combines the session's permission mode, scoped allow/ask/deny rules and an
// optional user callback into a verdict, and applies the rule updates that
// verdicts carry.
package permissions

import (
	"context"

	"github.com/conneroisu/claude-control/pkg/claude/options"
)

// PermissionBehavior defines permission behavior
type PermissionBehavior string

const (
	PermissionBehaviorAllow PermissionBehavior = "allow"
	PermissionBehaviorDeny  PermissionBehavior = "deny"
	PermissionBehaviorAsk   PermissionBehavior = "ask"
)

// PermissionUpdateDestination defines where permission updates are stored
type PermissionUpdateDestination string

const (
	PermissionDestinationSession         PermissionUpdateDestination = "session"
	PermissionDestinationLocalSettings   PermissionUpdateDestination = "localSettings"
	PermissionDestinationProjectSettings PermissionUpdateDestination = "projectSettings"
	PermissionDestinationUserSettings    PermissionUpdateDestination = "userSettings"
)

// ScopePrecedence orders destinations from most to least specific. Allow
// rules are consulted in this order.
var ScopePrecedence = []PermissionUpdateDestination{
	PermissionDestinationSession,
	PermissionDestinationLocalSettings,
	PermissionDestinationProjectSettings,
	PermissionDestinationUserSettings,
}

// PermissionRuleValue represents a permission rule
type PermissionRuleValue struct {
	ToolName    string
	RuleContent *string
}

// PermissionRule is a rule value with its behavior and scope.
type PermissionRule struct {
	PermissionRuleValue
	Behavior    PermissionBehavior
	Destination PermissionUpdateDestination
}

// PermissionUpdateType names one of the rule mutations.
type PermissionUpdateType string

const (
	UpdateAddRules          PermissionUpdateType = "addRules"
	UpdateReplaceRules      PermissionUpdateType = "replaceRules"
	UpdateRemoveRules       PermissionUpdateType = "removeRules"
	UpdateSetMode           PermissionUpdateType = "setMode"
	UpdateAddDirectories    PermissionUpdateType = "addDirectories"
	UpdateRemoveDirectories PermissionUpdateType = "removeDirectories"
)

// PermissionUpdate represents a permission change
type PermissionUpdate struct {
	Type        PermissionUpdateType
	Rules       []PermissionRuleValue
	Behavior    PermissionBehavior
	Mode        *options.PermissionMode
	Directories []string
	Destination PermissionUpdateDestination
}

// PermissionResult is the arbiter's verdict: PermissionResultAllow or
// PermissionResultDeny.
type PermissionResult interface {
	IsAllowed() bool
	permissionResult()
}

// PermissionResultAllow indicates tool use is allowed
type PermissionResultAllow struct {
	// UpdatedInput replaces the tool input when non-nil.
	UpdatedInput       map[string]any
	UpdatedPermissions []PermissionUpdate

	// Rule is the allow rule that decided, if any.
	Rule *PermissionRule
	// Reason names the evaluation step that allowed the call.
	Reason string
}

// IsAllowed implements PermissionResult.
func (*PermissionResultAllow) IsAllowed() bool { return true }

func (*PermissionResultAllow) permissionResult() {}

// PermissionResultDeny indicates tool use is denied. Interrupt ends the
// turn; otherwise the denial is relayed to the worker as a tool error.
type PermissionResultDeny struct {
	Message   string
	Interrupt bool

	Rule *PermissionRule
	// Reason names the evaluation step that denied the call.
	Reason string
}

// IsAllowed implements PermissionResult.
func (*PermissionResultDeny) IsAllowed() bool { return false }

func (*PermissionResultDeny) permissionResult() {}

// ToolPermissionContext provides context for permission decisions
type ToolPermissionContext struct {
	Suggestions []PermissionUpdate
	ToolUseID   string
	BlockedPath *string
	// Signal is cancelled when the pending request is abandoned.
	Signal context.Context
}

// CanUseToolFunc is a callback for permission checks
type CanUseToolFunc func(
	ctx context.Context,
	toolName string,
	input map[string]any,
	permCtx ToolPermissionContext,
) (PermissionResult, error)

// Request is one tool invocation awaiting a verdict.
type Request struct {
	ToolName    string
	Input       map[string]any
	ToolUseID   string
	Suggestions []PermissionUpdate
	BlockedPath *string
}

// Classifier tells the arbiter which tools are read-only and which edit
// files.
type Classifier interface {
	IsReadOnly(toolName string) bool
	IsEditClass(toolName string) bool
}
