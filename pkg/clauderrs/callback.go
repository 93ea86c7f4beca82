package clauderrs

import (
	"fmt"
	"time"
)

// CallbackError represents a hook or permission callback that failed or
// did not answer in time. Hook callback errors are never fatal.
type CallbackError struct {
	*BaseError
	callback string
	timeout  bool
}

// NewCallbackError creates a new callback error.
func NewCallbackError(
	code ErrorCode,
	message string,
	cause error,
	callback string,
	timeout bool,
) *CallbackError {
	err := &CallbackError{
		BaseError: NewBaseError(CategoryCallback, code, message, cause),
		callback:  callback,
		timeout:   timeout,
	}
	err.WithMetadata("callback", callback)
	err.WithMetadata("timeout", timeout)

	return err
}

// NewHookTimeoutError reports a hook callback that exceeded its deadline.
func NewHookTimeoutError(event, callback string, after time.Duration) *CallbackError {
	err := NewCallbackError(
		ErrCodeHookTimeout,
		fmt.Sprintf("hook timed out after %s", after),
		nil,
		callback,
		true,
	)
	err.WithMetadata(MetadataKeyEvent, event)

	return err
}

// NewHookExecutionError reports a hook callback that returned an error or
// panicked.
func NewHookExecutionError(event, callback string, cause error) *CallbackError {
	err := NewCallbackError(
		ErrCodeHookFailed,
		"hook execution failed",
		cause,
		callback,
		false,
	)
	err.WithMetadata(MetadataKeyEvent, event)

	return err
}

// Callback returns the callback name.
func (e *CallbackError) Callback() string {
	return e.callback
}

// Timeout returns whether the callback timed out.
func (e *CallbackError) Timeout() bool {
	return e.timeout
}

// WithSessionID adds session ID metadata to the error.
func (e *CallbackError) WithSessionID(sessionID string) *CallbackError {
	e.WithMetadata(MetadataKeySessionID, sessionID)

	return e
}
