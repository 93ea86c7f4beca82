package clauderrs_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

func TestSentinelMatching(t *testing.T) {
	err := clauderrs.NewChannelClosedError("req_1_ab", "set_model", nil)
	wrapped := fmt.Errorf("set model: %w", err)

	assert.ErrorIs(t, wrapped, clauderrs.ErrChannelClosed)
	assert.NotErrorIs(t, wrapped, clauderrs.ErrControlTimeout)
	assert.True(t, clauderrs.IsChannelClosed(wrapped))
	assert.True(t, clauderrs.IsControlError(wrapped))

	var ctrl *clauderrs.ControlError
	require.ErrorAs(t, wrapped, &ctrl)
	assert.Equal(t, "req_1_ab", ctrl.RequestID())
	assert.Equal(t, "set_model", ctrl.Subtype())
}

func TestHookErrors(t *testing.T) {
	timeout := clauderrs.NewHookTimeoutError("PreToolUse", "hook_0", 50*time.Millisecond)
	assert.True(t, clauderrs.IsHookTimeout(timeout))
	assert.True(t, timeout.Timeout())
	assert.Equal(t, "PreToolUse", timeout.Metadata()[clauderrs.MetadataKeyEvent])

	cause := errors.New("boom")
	failed := clauderrs.NewHookExecutionError("PostToolUse", "hook_1", cause)
	assert.True(t, clauderrs.IsHookFailure(failed))
	assert.ErrorIs(t, failed, cause)
	assert.False(t, clauderrs.IsFatal(failed))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{name: "nil", err: nil, fatal: false},
		{name: "plain error", err: errors.New("x"), fatal: true},
		{
			name:  "transport",
			err:   clauderrs.NewTransportError(clauderrs.ErrCodeWriteFailed, "write", nil),
			fatal: true,
		},
		{
			name:  "process exit",
			err:   clauderrs.NewProcessError(clauderrs.ErrCodeProcessExited, "exit", nil, 1, ""),
			fatal: true,
		},
		{
			name:  "decode",
			err:   clauderrs.NewProtocolError(clauderrs.ErrCodeUnknownMessageType, "unknown", nil),
			fatal: false,
		},
		{
			name:  "control timeout",
			err:   clauderrs.NewControlTimeoutError("req_1", "interrupt"),
			fatal: false,
		},
		{
			name:  "tool",
			err:   clauderrs.NewToolError(clauderrs.ErrCodeToolExecutionFailed, "exec", nil, "Bash", "tu_1"),
			fatal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, clauderrs.IsFatal(tt.err))
		})
	}
}

func TestProtocolErrorKeepsLine(t *testing.T) {
	line := []byte(`{"type":"bogus"}`)
	err := clauderrs.NewProtocolError(clauderrs.ErrCodeUnknownMessageType, "unknown type", nil).
		WithMessageType("bogus").
		WithLine(line)
	line[0] = 'X'

	assert.Equal(t, `{"type":"bogus"}`, string(err.Line()))
	assert.Equal(t, "bogus", err.Metadata()[clauderrs.MetadataKeyMessageType])
	assert.Contains(t, err.Error(), "protocol: unknown type")
}
