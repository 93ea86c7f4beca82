package permissions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/claude-control/pkg/claude/options"
	"github.com/conneroisu/claude-control/pkg/claude/permissions"
)

type staticTools struct {
	readOnly map[string]bool
	edit     map[string]bool
}

func (s staticTools) IsReadOnly(name string) bool  { return s.readOnly[name] }
func (s staticTools) IsEditClass(name string) bool { return s.edit[name] }

var classifier = staticTools{
	readOnly: map[string]bool{"Read": true, "Grep": true, "Glob": true},
	edit:     map[string]bool{"Write": true, "Edit": true},
}

func rule(t *testing.T, s string, behavior permissions.PermissionBehavior, dest permissions.PermissionUpdateDestination) permissions.PermissionRule {
	t.Helper()
	value, err := permissions.ParseRule(s)
	require.NoError(t, err)

	return permissions.PermissionRule{PermissionRuleValue: value, Behavior: behavior, Destination: dest}
}

func bash(command string) permissions.Request {
	return permissions.Request{ToolName: "Bash", Input: map[string]any{"command": command}, ToolUseID: "toolu_1"}
}

func allowAll(context.Context, string, map[string]any, permissions.ToolPermissionContext) (permissions.PermissionResult, error) {
	return &permissions.PermissionResultAllow{}, nil
}

func TestEvaluate_Order(t *testing.T) {
	tests := []struct {
		name      string
		mode      options.PermissionMode
		rules     []permissions.PermissionRule
		callback  permissions.CanUseToolFunc
		req       permissions.Request
		allowed   bool
		reason    string
		wantInMsg string
	}{
		{
			name:    "bypass allows anything",
			mode:    options.PermissionModeBypassPermissions,
			rules:   []permissions.PermissionRule{rule(t, "Bash", permissions.PermissionBehaviorDeny, permissions.PermissionDestinationSession)},
			req:     bash("rm -rf /"),
			allowed: true,
			reason:  permissions.ReasonBypass,
		},
		{
			name:      "plan denies mutating tools",
			mode:      options.PermissionModePlan,
			req:       bash("ls"),
			wantInMsg: "plan mode",
		},
		{
			name:    "plan allows read-only tools",
			mode:    options.PermissionModePlan,
			req:     permissions.Request{ToolName: "Read", Input: map[string]any{"file_path": "/repo/a.go"}},
			allowed: true,
			reason:  permissions.ReasonPlan,
		},
		{
			name:    "plan allows exit plan mode",
			mode:    options.PermissionModePlan,
			req:     permissions.Request{ToolName: "ExitPlanMode"},
			allowed: true,
		},
		{
			name:      "plan treats mcp tools as mutating",
			mode:      options.PermissionModePlan,
			req:       permissions.Request{ToolName: "mcp__calc__add"},
			wantInMsg: "plan mode",
		},
		{
			name: "user deny beats session allow",
			rules: []permissions.PermissionRule{
				rule(t, "Bash(git push:*)", permissions.PermissionBehaviorAllow, permissions.PermissionDestinationSession),
				rule(t, "Bash(git push:*)", permissions.PermissionBehaviorDeny, permissions.PermissionDestinationUserSettings),
			},
			callback:  allowAll,
			req:       bash("git push origin main"),
			wantInMsg: "Bash(git push:*)",
		},
		{
			name: "ask rule skips allow rules",
			rules: []permissions.PermissionRule{
				rule(t, "Bash", permissions.PermissionBehaviorAllow, permissions.PermissionDestinationSession),
				rule(t, "Bash(npm publish:*)", permissions.PermissionBehaviorAsk, permissions.PermissionDestinationProjectSettings),
			},
			req:       bash("npm publish"),
			wantInMsg: "no permission decision mechanism configured for tool Bash",
		},
		{
			name:    "allow rule allows",
			rules:   []permissions.PermissionRule{rule(t, "Bash(npm run:*)", permissions.PermissionBehaviorAllow, permissions.PermissionDestinationLocalSettings)},
			req:     bash("npm run test"),
			allowed: true,
			reason:  permissions.ReasonRule,
		},
		{
			name:    "accept edits allows edit-class tools",
			mode:    options.PermissionModeAcceptEdits,
			req:     permissions.Request{ToolName: "Edit", Input: map[string]any{"file_path": "/repo/a.go"}},
			allowed: true,
			reason:  permissions.ReasonAcceptEdits,
		},
		{
			name:     "callback decides",
			callback: allowAll,
			req:      bash("make"),
			allowed:  true,
			reason:   permissions.ReasonCallback,
		},
		{
			name: "callback error denies",
			callback: func(context.Context, string, map[string]any, permissions.ToolPermissionContext) (permissions.PermissionResult, error) {
				return nil, errors.New("prompt unavailable")
			},
			req:       bash("make"),
			wantInMsg: "prompt unavailable",
		},
		{
			name:      "fail closed without callback",
			req:       bash("make"),
			wantInMsg: "no permission decision mechanism configured for tool Bash",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := permissions.NewArbiter(&permissions.PermissionsConfig{
				Mode:       tt.mode,
				CanUseTool: tt.callback,
				Settings:   permissions.Snapshot{Rules: settingsOnly(tt.rules)},
				Tools:      classifier,
				Cwd:        "/repo",
			})
			require.NoError(t, a.ApplyUpdates(sessionUpdates(tt.rules)...))

			verdict, err := a.Evaluate(context.Background(), tt.req)
			require.NoError(t, err)

			assert.Equal(t, tt.allowed, verdict.IsAllowed())
			if tt.allowed {
				allow := verdict.(*permissions.PermissionResultAllow)
				if tt.reason != "" {
					assert.Equal(t, tt.reason, allow.Reason)
				}

				return
			}
			deny := verdict.(*permissions.PermissionResultDeny)
			assert.False(t, deny.Interrupt)
			assert.Contains(t, deny.Message, tt.wantInMsg)
		})
	}
}

func settingsOnly(rules []permissions.PermissionRule) []permissions.PermissionRule {
	var out []permissions.PermissionRule
	for _, r := range rules {
		if r.Destination != permissions.PermissionDestinationSession {
			out = append(out, r)
		}
	}

	return out
}

func sessionUpdates(rules []permissions.PermissionRule) []permissions.PermissionUpdate {
	var out []permissions.PermissionUpdate
	for _, r := range rules {
		if r.Destination == permissions.PermissionDestinationSession {
			out = append(out, permissions.PermissionUpdate{
				Type:        permissions.UpdateAddRules,
				Rules:       []permissions.PermissionRuleValue{r.PermissionRuleValue},
				Behavior:    r.Behavior,
				Destination: r.Destination,
			})
		}
	}

	return out
}

func TestEvaluate_AllowRecordsScopePrecedence(t *testing.T) {
	a := permissions.NewArbiter(&permissions.PermissionsConfig{
		Settings: permissions.Snapshot{Rules: []permissions.PermissionRule{
			rule(t, "Read", permissions.PermissionBehaviorAllow, permissions.PermissionDestinationUserSettings),
			rule(t, "Read(src/**)", permissions.PermissionBehaviorAllow, permissions.PermissionDestinationProjectSettings),
		}},
		Cwd: "/repo",
	})

	verdict, err := a.Evaluate(context.Background(), permissions.Request{
		ToolName: "Read",
		Input:    map[string]any{"file_path": "/repo/src/pkg/main.go"},
	})
	require.NoError(t, err)

	allow := verdict.(*permissions.PermissionResultAllow)
	require.NotNil(t, allow.Rule)
	assert.Equal(t, permissions.PermissionDestinationProjectSettings, allow.Rule.Destination)
	assert.Equal(t, "Read(src/**)", allow.Rule.String())
}

func TestEvaluate_CallbackUpdatesAreApplied(t *testing.T) {
	always := permissions.PermissionUpdate{
		Type:        permissions.UpdateAddRules,
		Rules:       []permissions.PermissionRuleValue{{ToolName: "Bash"}},
		Behavior:    permissions.PermissionBehaviorAllow,
		Destination: permissions.PermissionDestinationSession,
	}
	var calls int
	a := permissions.NewArbiter(&permissions.PermissionsConfig{
		CanUseTool: func(_ context.Context, _ string, input map[string]any, permCtx permissions.ToolPermissionContext) (permissions.PermissionResult, error) {
			calls++
			assert.Equal(t, "toolu_1", permCtx.ToolUseID)

			return &permissions.PermissionResultAllow{
				UpdatedInput:       input,
				UpdatedPermissions: []permissions.PermissionUpdate{always},
			}, nil
		},
	})

	for range 3 {
		verdict, err := a.Evaluate(context.Background(), bash("go test ./..."))
		require.NoError(t, err)
		assert.True(t, verdict.IsAllowed())
	}

	assert.Equal(t, 1, calls)
	rules := a.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, permissions.PermissionDestinationSession, rules[0].Destination)
}

func TestApplyUpdates(t *testing.T) {
	plan := options.PermissionModePlan
	a := permissions.NewArbiter(nil)

	require.NoError(t, a.ApplyUpdates(
		permissions.PermissionUpdate{
			Type:        permissions.UpdateAddRules,
			Rules:       []permissions.PermissionRuleValue{{ToolName: "Read"}, {ToolName: "Grep"}},
			Behavior:    permissions.PermissionBehaviorAllow,
			Destination: permissions.PermissionDestinationSession,
		},
		permissions.PermissionUpdate{
			Type:        permissions.UpdateRemoveRules,
			Rules:       []permissions.PermissionRuleValue{{ToolName: "Grep"}},
			Behavior:    permissions.PermissionBehaviorAllow,
			Destination: permissions.PermissionDestinationSession,
		},
		permissions.PermissionUpdate{
			Type:        permissions.UpdateAddDirectories,
			Directories: []string{"/data", "/cache"},
			Destination: permissions.PermissionDestinationSession,
		},
		permissions.PermissionUpdate{
			Type:        permissions.UpdateRemoveDirectories,
			Directories: []string{"/cache"},
			Destination: permissions.PermissionDestinationSession,
		},
		permissions.PermissionUpdate{Type: permissions.UpdateSetMode, Mode: &plan, Destination: permissions.PermissionDestinationSession},
	))

	require.Len(t, a.Rules(), 1)
	assert.Equal(t, "Read", a.Rules()[0].ToolName)
	assert.Equal(t, []string{"/data"}, a.Directories())
	assert.Equal(t, options.PermissionModePlan, a.Mode())

	require.NoError(t, a.ApplyUpdates(permissions.PermissionUpdate{
		Type:        permissions.UpdateReplaceRules,
		Rules:       []permissions.PermissionRuleValue{{ToolName: "Glob"}},
		Behavior:    permissions.PermissionBehaviorAllow,
		Destination: permissions.PermissionDestinationSession,
	}))
	require.Len(t, a.Rules(), 1)
	assert.Equal(t, "Glob", a.Rules()[0].ToolName)

	err := a.ApplyUpdates(
		permissions.PermissionUpdate{Type: permissions.UpdateAddDirectories, Directories: []string{"/x"}, Destination: permissions.PermissionDestinationSession},
		permissions.PermissionUpdate{Type: "bogus"},
	)
	require.Error(t, err)
	assert.Equal(t, []string{"/data"}, a.Directories())
}

func TestReloadKeepsSessionRules(t *testing.T) {
	a := permissions.NewArbiter(&permissions.PermissionsConfig{
		Settings: permissions.Snapshot{Rules: []permissions.PermissionRule{
			rule(t, "Bash", permissions.PermissionBehaviorDeny, permissions.PermissionDestinationUserSettings),
		}},
	})
	require.NoError(t, a.ApplyUpdates(permissions.PermissionUpdate{
		Type:        permissions.UpdateAddRules,
		Rules:       []permissions.PermissionRuleValue{{ToolName: "Read"}},
		Behavior:    permissions.PermissionBehaviorAllow,
		Destination: permissions.PermissionDestinationSession,
	}))

	verdict, err := a.Evaluate(context.Background(), bash("ls"))
	require.NoError(t, err)
	assert.False(t, verdict.IsAllowed())

	a.Reload(permissions.Snapshot{Rules: []permissions.PermissionRule{
		rule(t, "Bash(ls)", permissions.PermissionBehaviorAllow, permissions.PermissionDestinationProjectSettings),
	}})

	verdict, err = a.Evaluate(context.Background(), bash("ls"))
	require.NoError(t, err)
	assert.True(t, verdict.IsAllowed())
	assert.Len(t, a.Rules(), 2)
}

func TestEvaluate_CancelledContext(t *testing.T) {
	a := permissions.NewArbiter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Evaluate(ctx, bash("ls"))
	assert.ErrorIs(t, err, context.Canceled)
}
