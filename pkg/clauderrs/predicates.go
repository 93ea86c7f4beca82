package clauderrs

import "errors"

// AsSDKError extracts an SDKError from the error chain.
func AsSDKError(err error) (SDKError, bool) {
	var sdkErr SDKError
	if errors.As(err, &sdkErr) {
		return sdkErr, true
	}

	return nil, false
}

func hasCategory(err error, category ErrorCategory) bool {
	if sdkErr, ok := AsSDKError(err); ok {
		return sdkErr.Category() == category
	}

	return false
}

func hasCode(err error, code ErrorCode) bool {
	got, ok := codeOf(err)

	return ok && got == code
}

// IsClientError checks if the error is a client error.
func IsClientError(err error) bool { return hasCategory(err, CategoryClient) }

// IsProtocolError checks if the error is a protocol (decode) error.
func IsProtocolError(err error) bool { return hasCategory(err, CategoryProtocol) }

// IsTransportError checks if the error is a transport error.
func IsTransportError(err error) bool { return hasCategory(err, CategoryTransport) }

// IsProcessError checks if the error is a process error.
func IsProcessError(err error) bool { return hasCategory(err, CategoryProcess) }

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool { return hasCategory(err, CategoryValidation) }

// IsPermissionError checks if the error is a permission error.
func IsPermissionError(err error) bool { return hasCategory(err, CategoryPermission) }

// IsCallbackError checks if the error is a callback error.
func IsCallbackError(err error) bool { return hasCategory(err, CategoryCallback) }

// IsControlError checks if the error is a control request error.
func IsControlError(err error) bool { return hasCategory(err, CategoryControl) }

// IsToolError checks if the error is a tool error.
func IsToolError(err error) bool { return hasCategory(err, CategoryTool) }

// IsSessionError checks if the error is a session store error.
func IsSessionError(err error) bool { return hasCategory(err, CategorySession) }

// IsHookTimeout checks if the error is a hook timeout.
func IsHookTimeout(err error) bool { return hasCode(err, ErrCodeHookTimeout) }

// IsHookFailure checks if the error is a failed or panicking hook.
func IsHookFailure(err error) bool { return hasCode(err, ErrCodeHookFailed) }

// IsControlTimeout checks if the error is a control request timeout.
func IsControlTimeout(err error) bool { return hasCode(err, ErrCodeControlTimeout) }

// IsChannelClosed checks if a control request failed because the channel
// reached its terminal state.
func IsChannelClosed(err error) bool { return hasCode(err, ErrCodeChannelClosed) }

// IsFatal reports whether err ends the session. Transport and process
// failures are fatal; decode, hook, tool and control failures are not.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	sdkErr, ok := AsSDKError(err)
	if !ok {
		return true
	}
	switch sdkErr.Category() {
	case CategoryTransport, CategoryProcess:
		return true
	case CategoryClient:
		return sdkErr.Code() == ErrCodeInvalidState
	default:
		return false
	}
}
