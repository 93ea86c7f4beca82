// Package clauderrs provides the error taxonomy for the agent control plane.
// Every error crossing a package boundary is an SDKError carrying a category,
// a stable code, and metadata such as the session or request it belongs to.
package clauderrs

import "errors"

// ErrorCategory groups error codes by the layer that produced them.
type ErrorCategory string

const (
	// CategoryClient represents misuse of the public client API.
	CategoryClient ErrorCategory = "client"
	// CategoryProtocol represents malformed or unknown wire messages.
	CategoryProtocol ErrorCategory = "protocol"
	// CategoryTransport represents pipe and I/O failures.
	CategoryTransport ErrorCategory = "transport"
	// CategoryProcess represents worker process lifecycle failures.
	CategoryProcess ErrorCategory = "process"
	// CategoryValidation represents invalid configuration or input.
	CategoryValidation ErrorCategory = "validation"
	// CategoryPermission represents permission denials used as causes.
	CategoryPermission ErrorCategory = "permission"
	// CategoryCallback represents hook and permission callback failures.
	CategoryCallback ErrorCategory = "callback"
	// CategoryControl represents control request/response failures.
	CategoryControl ErrorCategory = "control"
	// CategoryTool represents tool executor failures.
	CategoryTool ErrorCategory = "tool"
	// CategorySession represents session store failures.
	CategorySession ErrorCategory = "session"
)

// ErrorCode is a stable identifier within a category.
type ErrorCode string

// Client error codes.
const (
	ErrCodeClientClosed     ErrorCode = "client_closed"
	ErrCodeInvalidState     ErrorCode = "invalid_state"
	ErrCodeInvalidConfig    ErrorCode = "invalid_config"
	ErrCodeInterrupted      ErrorCode = "interrupted"
	ErrCodeNotConnected     ErrorCode = "not_connected"
	ErrCodeAlreadyConnected ErrorCode = "already_connected"
)

// Protocol error codes.
const (
	ErrCodeInvalidMessage     ErrorCode = "invalid_message"
	ErrCodeMessageParseFailed ErrorCode = "message_parse_failed"
	ErrCodeUnknownMessageType ErrorCode = "unknown_message_type"
	ErrCodeEncodeFailed       ErrorCode = "encode_failed"
)

// Transport error codes.
const (
	ErrCodeIOError       ErrorCode = "io_error"
	ErrCodeReadFailed    ErrorCode = "read_failed"
	ErrCodeWriteFailed   ErrorCode = "write_failed"
	ErrCodeTransportInit ErrorCode = "transport_init"
)

// Process error codes.
const (
	ErrCodeProcessNotFound    ErrorCode = "process_not_found"
	ErrCodeProcessSpawnFailed ErrorCode = "process_spawn_failed"
	ErrCodeProcessCrashed     ErrorCode = "process_crashed"
	ErrCodeProcessExited      ErrorCode = "process_exited"
)

// Validation error codes.
const (
	ErrCodeMissingField  ErrorCode = "missing_field"
	ErrCodeInvalidType   ErrorCode = "invalid_type"
	ErrCodeInvalidFormat ErrorCode = "invalid_format"
)

// Permission error codes.
const (
	ErrCodeToolDenied ErrorCode = "tool_denied"
)

// Callback error codes.
const (
	ErrCodeCallbackFailed ErrorCode = "callback_failed"
	ErrCodeHookFailed     ErrorCode = "hook_failed"
	ErrCodeHookTimeout    ErrorCode = "hook_timeout"
)

// Control error codes.
const (
	ErrCodeControlTimeout     ErrorCode = "control_timeout"
	ErrCodeChannelClosed      ErrorCode = "control_channel_closed"
	ErrCodeDuplicateRequestID ErrorCode = "duplicate_request_id"
	ErrCodeControlFailed      ErrorCode = "control_failed"
	ErrCodeUnsupportedSubtype ErrorCode = "unsupported_subtype"
)

// Tool error codes.
const (
	ErrCodeToolExecutionFailed ErrorCode = "tool_execution_failed"
	ErrCodeToolInputInvalid    ErrorCode = "tool_input_invalid"
)

// Session error codes.
const (
	ErrCodeSessionNotFound ErrorCode = "session_not_found"
	ErrCodeSessionExists   ErrorCode = "session_exists"
	ErrCodeUnknownMessage  ErrorCode = "unknown_message_id"
	ErrCodeStoreFailed     ErrorCode = "store_failed"
)

// Metadata keys shared by the typed errors.
const (
	MetadataKeySessionID   = "session_id"
	MetadataKeyRequestID   = "request_id"
	MetadataKeyMessageType = "message_type"
	MetadataKeyToolName    = "tool_name"
	MetadataKeyEvent       = "event"
)

// Sentinel errors. Typed errors match them with errors.Is by code.
var (
	ErrChannelClosed      = NewBaseError(CategoryControl, ErrCodeChannelClosed, "channel closed", nil)
	ErrDuplicateRequestID = NewBaseError(CategoryControl, ErrCodeDuplicateRequestID, "duplicate request id", nil)
	ErrControlTimeout     = NewBaseError(CategoryControl, ErrCodeControlTimeout, "control request timed out", nil)
	ErrSessionNotFound    = NewBaseError(CategorySession, ErrCodeSessionNotFound, "session not found", nil)
	ErrUnknownMessageID   = NewBaseError(CategorySession, ErrCodeUnknownMessage, "unknown message id", nil)
	ErrClientClosed       = NewBaseError(CategoryClient, ErrCodeClientClosed, "client closed", nil)
	ErrInterrupted        = NewBaseError(CategoryClient, ErrCodeInterrupted, "interrupted", nil)
)

// codeOf returns the code of the first SDKError in err's chain.
func codeOf(err error) (ErrorCode, bool) {
	var sdkErr SDKError
	if errors.As(err, &sdkErr) {
		return sdkErr.Code(), true
	}

	return "", false
}
