package testutil

import (
	"context"
	"sync"

	"github.com/conneroisu/claude-control/pkg/claude/permissions"
)

// PermissionCall is one recorded permission callback invocation.
type PermissionCall struct {
	ToolName string
	Input    map[string]any
	Context  permissions.ToolPermissionContext
}

// RecordingPermissions is a permission callback that records its calls.
// Without a Decide function it allows everything.
type RecordingPermissions struct {
	Decide func(toolName string, input map[string]any) (permissions.PermissionResult, error)

	mu    sync.Mutex
	calls []PermissionCall
}

// CanUseTool matches permissions.CanUseToolFunc.
func (r *RecordingPermissions) CanUseTool(
	_ context.Context,
	toolName string,
	input map[string]any,
	permCtx permissions.ToolPermissionContext,
) (permissions.PermissionResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, PermissionCall{ToolName: toolName, Input: input, Context: permCtx})
	r.mu.Unlock()
	if r.Decide != nil {
		return r.Decide(toolName, input)
	}

	return &permissions.PermissionResultAllow{}, nil
}

// Calls returns the recorded invocations.
func (r *RecordingPermissions) Calls() []PermissionCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]PermissionCall(nil), r.calls...)
}
