package hooking

import "strings"

// Outcome is the merged result of one dispatch.
type Outcome struct {
	Event HookEvent
	// Invoked counts the callbacks that were started.
	Invoked int

	// Blocked is set by decision "block" or a "deny" permission decision.
	Blocked bool
	// Stopped is set by continue:false.
	Stopped    bool
	StopReason string
	Reason     string

	// PermissionDecision is the last decision recorded by a PreToolUse hook.
	PermissionDecision       PermissionDecision
	PermissionDecisionReason string
	// UpdatedInput replaces the tool input. The last PreToolUse hook that
	// set a permission decision wins.
	UpdatedInput map[string]any

	AdditionalContext string
	SystemMessage     string
	SuppressOutput    bool

	// Errors holds timeouts and failures of callbacks that failed open.
	Errors []error
}

// Decisive reports whether a callback stopped the dispatch.
func (o *Outcome) Decisive() bool {
	return o.Blocked || o.Stopped
}

// DenyMessage explains a decisive outcome.
func (o *Outcome) DenyMessage() string {
	switch {
	case o.PermissionDecisionReason != "" && o.PermissionDecision == PermissionDeny:
		return o.PermissionDecisionReason
	case o.Reason != "":
		return o.Reason
	case o.StopReason != "":
		return o.StopReason
	default:
		return "blocked by " + string(o.Event) + " hook"
	}
}

// merge folds one callback output into o and reports whether it is
// decisive.
func (o *Outcome) merge(res *HookOutput) bool {
	if res == nil {
		return false
	}
	o.SystemMessage = joinNonEmpty(o.SystemMessage, res.SystemMessage)
	if res.SuppressOutput {
		o.SuppressOutput = true
	}
	if res.Reason != "" {
		o.Reason = res.Reason
	}
	if res.Decision == DecisionBlock {
		o.Blocked = true
	}
	if res.Continue != nil && !*res.Continue {
		o.Stopped = true
		o.StopReason = res.StopReason
	}
	if spec := res.HookSpecificOutput; spec != nil {
		o.AdditionalContext = joinNonEmpty(o.AdditionalContext, spec.AdditionalContext)
		if spec.PermissionDecision != "" && o.Event == HookEventPreToolUse {
			o.PermissionDecision = spec.PermissionDecision
			o.PermissionDecisionReason = spec.PermissionDecisionReason
			if spec.UpdatedInput != nil {
				o.UpdatedInput = spec.UpdatedInput
			}
			if spec.PermissionDecision == PermissionDeny {
				o.Blocked = true
			}
		}
	}

	return o.Decisive()
}

func joinNonEmpty(acc, next string) string {
	switch {
	case next == "":
		return acc
	case acc == "":
		return next
	default:
		return strings.Join([]string{acc, next}, "\n")
	}
}

// Output renders the outcome as a hook output object, the body of a
// hook_callback response.
func (o *Outcome) Output() map[string]any {
	out := map[string]any{}
	if o.Stopped {
		out["continue"] = false
		if o.StopReason != "" {
			out["stopReason"] = o.StopReason
		}
	}
	if o.Blocked && o.PermissionDecision != PermissionDeny {
		out["decision"] = DecisionBlock
	}
	if o.Reason != "" {
		out["reason"] = o.Reason
	}
	if o.SystemMessage != "" {
		out["systemMessage"] = o.SystemMessage
	}
	if o.SuppressOutput {
		out["suppressOutput"] = true
	}
	specific := map[string]any{}
	if o.PermissionDecision != "" {
		specific["permissionDecision"] = string(o.PermissionDecision)
		if o.PermissionDecisionReason != "" {
			specific["permissionDecisionReason"] = o.PermissionDecisionReason
		}
		if o.UpdatedInput != nil {
			specific["updatedInput"] = o.UpdatedInput
		}
	}
	if o.AdditionalContext != "" {
		specific["additionalContext"] = o.AdditionalContext
	}
	if len(specific) > 0 {
		specific["hookEventName"] = string(o.Event)
		out["hookSpecificOutput"] = specific
	}

	return out
}
