package permissions

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/options"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// Evaluation steps recorded in the Reason of a verdict.
const (
	ReasonBypass      = "bypassPermissions"
	ReasonPlan        = "plan"
	ReasonRule        = "rule"
	ReasonAcceptEdits = "acceptEdits"
	ReasonCallback    = "callback"
	// ReasonDefault marks the fail-closed denial when nothing decided.
	ReasonDefault = "default"
)

var defaultEditClass = map[string]bool{
	string(options.ToolWrite):        true,
	string(options.ToolEdit):         true,
	string(options.ToolMultiEdit):    true,
	string(options.ToolNotebookEdit): true,
}

// PermissionsConfig holds permission service configuration
type PermissionsConfig struct {
	Mode       options.PermissionMode
	CanUseTool CanUseToolFunc
	// Settings seeds the non-session scopes.
	Settings Snapshot
	// Tools classifies tools for plan and acceptEdits modes. Without it only
	// ExitPlanMode is read-only and the four file-editing tools are
	// edit-class.
	Tools  Classifier
	Cwd    string
	Logger *zap.Logger
}

// Arbiter evaluates tool invocations for one session. It owns the
// session's RuleSet.
type Arbiter struct {
	mu         sync.RWMutex
	mode       options.PermissionMode
	rules      *RuleSet
	canUseTool CanUseToolFunc
	tools      Classifier
	cwd        string
	logger     *zap.Logger
}

// NewArbiter creates an arbiter. An empty mode falls back to the settings
// default mode, then to "default".
func NewArbiter(config *PermissionsConfig) *Arbiter {
	if config == nil {
		config = &PermissionsConfig{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mode := config.Mode
	if mode == "" && config.Settings.DefaultMode != nil {
		mode = *config.Settings.DefaultMode
	}
	if mode == "" {
		mode = options.PermissionModeDefault
	}
	a := &Arbiter{
		mode:       mode,
		rules:      NewRuleSet(),
		canUseTool: config.CanUseTool,
		tools:      config.Tools,
		cwd:        config.Cwd,
		logger:     logger.Named("permissions"),
	}
	a.rules.resetSettings(config.Settings)

	return a
}

// Mode returns the current permission mode.
func (a *Arbiter) Mode() options.PermissionMode {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.mode
}

// SetMode changes the permission mode.
func (a *Arbiter) SetMode(mode options.PermissionMode) error {
	if !mode.Valid() {
		return clauderrs.NewValidationError(
			clauderrs.ErrCodeInvalidFormat,
			fmt.Sprintf("unknown permission mode %q", mode),
			nil,
			"mode",
			string(mode),
		)
	}
	a.mu.Lock()
	a.mode = mode
	a.mu.Unlock()

	return nil
}

// Rules returns a copy of every rule in scope precedence order.
func (a *Arbiter) Rules() []PermissionRule {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.rules.Rules()
}

// Directories returns the additional working directories in effect.
func (a *Arbiter) Directories() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.rules.Directories()
}

// Reload replaces the settings scopes with a fresh snapshot. Session rules
// and the mode are kept.
func (a *Arbiter) Reload(snap Snapshot) {
	a.mu.Lock()
	a.rules.resetSettings(snap)
	a.mu.Unlock()
	a.logger.Debug("settings reloaded", zap.Int("rules", len(snap.Rules)))
}

// ApplyUpdates merges rule updates into the in-memory rule set. Updates are
// validated first; none is applied if any is invalid.
func (a *Arbiter) ApplyUpdates(updates ...PermissionUpdate) error {
	for _, u := range updates {
		if err := u.validate(); err != nil {
			return clauderrs.NewValidationError(
				clauderrs.ErrCodeInvalidFormat,
				"invalid permission update",
				err,
				"updatedPermissions",
				string(u.Type),
			)
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range updates {
		switch u.Type {
		case UpdateAddRules:
			a.rules.Add(u.Destination, u.Behavior, u.Rules...)
		case UpdateReplaceRules:
			a.rules.Replace(u.Destination, u.Behavior, u.Rules...)
		case UpdateRemoveRules:
			a.rules.Remove(u.Destination, u.Behavior, u.Rules...)
		case UpdateSetMode:
			a.mode = *u.Mode
		case UpdateAddDirectories:
			a.rules.AddDirectories(u.Destination, u.Directories...)
		case UpdateRemoveDirectories:
			a.rules.RemoveDirectories(u.Destination, u.Directories...)
		}
	}

	return nil
}

// Evaluate decides req. The first matching step wins:
//
//  1. bypassPermissions allows everything.
//  2. plan denies tools that are not read-only.
//  3. deny rules, in any scope, deny.
//  4. ask rules skip straight to the callback.
//  5. allow rules, most specific scope first, allow.
//  6. acceptEdits allows edit-class tools.
//  7. the callback's verdict is returned as is.
//  8. without a callback the call is denied.
//
// Read-only tools in plan mode are allowed once no deny rule matched.
func (a *Arbiter) Evaluate(ctx context.Context, req Request) (PermissionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	verdict := a.evaluate(ctx, req)
	if allow, ok := verdict.(*PermissionResultAllow); ok && len(allow.UpdatedPermissions) > 0 {
		if err := a.ApplyUpdates(allow.UpdatedPermissions...); err != nil {
			a.logger.Warn("dropping invalid permission updates",
				zap.String("tool", req.ToolName),
				zap.Error(err),
			)
		}
	}

	return verdict, nil
}

func (a *Arbiter) evaluate(ctx context.Context, req Request) PermissionResult {
	a.mu.RLock()
	mode := a.mode
	call := target{tool: req.ToolName, input: req.Input, cwd: a.cwd}
	denyRule, denied := a.rules.find(PermissionBehaviorDeny, call)
	askRule, asked := a.rules.find(PermissionBehaviorAsk, call)
	allowRule, allowed := a.rules.find(PermissionBehaviorAllow, call)
	a.mu.RUnlock()

	if mode == options.PermissionModeBypassPermissions {
		return a.allow(req, ReasonBypass, nil)
	}
	if mode == options.PermissionModePlan && !a.readOnly(req.ToolName) {
		return a.deny(req, ReasonPlan, fmt.Sprintf("tool %s is not available in plan mode", req.ToolName), nil)
	}
	if denied {
		return a.deny(req, ReasonRule, fmt.Sprintf("permission rule %s denies tool %s", denyRule.String(), req.ToolName), denyRule)
	}
	if mode == options.PermissionModePlan {
		return a.allow(req, ReasonPlan, nil)
	}
	if !asked {
		if allowed {
			return a.allow(req, ReasonRule, allowRule)
		}
		if mode == options.PermissionModeAcceptEdits && a.editClass(req.ToolName) {
			return a.allow(req, ReasonAcceptEdits, nil)
		}
	} else {
		a.logger.Debug("ask rule matched",
			zap.String("tool", req.ToolName),
			zap.String("rule", askRule.String()),
		)
	}

	return a.callback(ctx, req)
}

func (a *Arbiter) callback(ctx context.Context, req Request) PermissionResult {
	if a.canUseTool == nil {
		return a.deny(req, ReasonDefault, fmt.Sprintf("no permission decision mechanism configured for tool %s", req.ToolName), nil)
	}
	result, err := a.canUseTool(ctx, req.ToolName, req.Input, ToolPermissionContext{
		Suggestions: req.Suggestions,
		ToolUseID:   req.ToolUseID,
		BlockedPath: req.BlockedPath,
		Signal:      ctx,
	})
	if err != nil {
		a.logger.Warn("permission callback failed",
			zap.String("tool", req.ToolName),
			zap.Error(err),
		)

		return &PermissionResultDeny{Message: err.Error(), Reason: ReasonCallback}
	}
	if result == nil {
		return a.deny(req, ReasonCallback, fmt.Sprintf("permission callback returned no decision for tool %s", req.ToolName), nil)
	}
	switch r := result.(type) {
	case *PermissionResultAllow:
		if r.Reason == "" {
			r.Reason = ReasonCallback
		}
	case *PermissionResultDeny:
		if r.Reason == "" {
			r.Reason = ReasonCallback
		}
	}

	return result
}

func (a *Arbiter) allow(req Request, reason string, rule *PermissionRule) *PermissionResultAllow {
	fields := []zap.Field{zap.String("tool", req.ToolName), zap.String("reason", reason)}
	if rule != nil {
		fields = append(fields,
			zap.String("rule", rule.String()),
			zap.String("scope", string(rule.Destination)),
		)
	}
	a.logger.Debug("tool allowed", fields...)

	return &PermissionResultAllow{Reason: reason, Rule: rule}
}

func (a *Arbiter) deny(req Request, reason, message string, rule *PermissionRule) *PermissionResultDeny {
	a.logger.Debug("tool denied",
		zap.String("tool", req.ToolName),
		zap.String("reason", reason),
		zap.String("message", message),
	)

	return &PermissionResultDeny{Message: message, Rule: rule, Reason: reason}
}

func (a *Arbiter) readOnly(tool string) bool {
	if tool == string(options.ToolExitPlanMode) {
		return true
	}

	return a.tools != nil && a.tools.IsReadOnly(tool)
}

func (a *Arbiter) editClass(tool string) bool {
	if a.tools != nil {
		return a.tools.IsEditClass(tool)
	}

	return defaultEditClass[tool]
}
