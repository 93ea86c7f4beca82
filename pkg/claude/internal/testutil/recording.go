package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/claude-control/pkg/claude/hooking"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
)

// RecordingExecutor is a ports.ToolExecutor that records calls and answers
// with Result, or with Run when set.
type RecordingExecutor struct {
	Result ports.ToolResult
	Run    func(ctx context.Context, call ports.ToolCall) (ports.ToolResult, error)

	mu    sync.Mutex
	calls []ports.ToolCall
}

var _ ports.ToolExecutor = (*RecordingExecutor)(nil)

// Execute implements ports.ToolExecutor.
func (r *RecordingExecutor) Execute(ctx context.Context, call ports.ToolCall) (ports.ToolResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	if r.Run != nil {
		return r.Run(ctx, call)
	}

	return r.Result, nil
}

// Calls returns the recorded calls.
func (r *RecordingExecutor) Calls() []ports.ToolCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]ports.ToolCall(nil), r.calls...)
}

// CountingHook is a hook callback that counts invocations and returns
// Output after an optional Delay.
type CountingHook struct {
	Output *hooking.HookOutput
	Delay  time.Duration

	mu     sync.Mutex
	inputs []hooking.HookInput
}

// Callback returns the hook function to register.
func (h *CountingHook) Callback() hooking.HookCallback {
	return func(input hooking.HookInput, _ *string, hctx hooking.HookContext) (*hooking.HookOutput, error) {
		h.mu.Lock()
		h.inputs = append(h.inputs, input)
		h.mu.Unlock()
		if h.Delay > 0 {
			select {
			case <-time.After(h.Delay):
			case <-hctx.Signal.Done():
				return nil, hctx.Signal.Err()
			}
		}

		return h.Output, nil
	}
}

// Count returns how many times the hook ran.
func (h *CountingHook) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.inputs)
}

// Inputs returns the inputs the hook received.
func (h *CountingHook) Inputs() []hooking.HookInput {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]hooking.HookInput(nil), h.inputs...)
}
