package clauderrs

import "fmt"

// ControlError represents a failed control request. It affects the single
// call only; the content stream keeps flowing.
type ControlError struct {
	*BaseError
	requestID string
	subtype   string
}

// NewControlError creates a new control error.
func NewControlError(
	code ErrorCode,
	message string,
	cause error,
	requestID, subtype string,
) *ControlError {
	err := &ControlError{
		BaseError: NewBaseError(CategoryControl, code, message, cause),
		requestID: requestID,
		subtype:   subtype,
	}
	err.WithMetadata(MetadataKeyRequestID, requestID)
	err.WithMetadata("subtype", subtype)

	return err
}

// NewControlTimeoutError reports a control request with no response.
func NewControlTimeoutError(requestID, subtype string) *ControlError {
	return NewControlError(
		ErrCodeControlTimeout,
		fmt.Sprintf("no response to %s request", subtype),
		nil,
		requestID,
		subtype,
	)
}

// NewChannelClosedError reports a control request outstanding when the
// worker channel reached its terminal state.
func NewChannelClosedError(requestID, subtype string, cause error) *ControlError {
	return NewControlError(
		ErrCodeChannelClosed,
		"channel closed before response",
		cause,
		requestID,
		subtype,
	)
}

// RequestID returns the correlation ID of the failed request.
func (e *ControlError) RequestID() string {
	return e.requestID
}

// Subtype returns the control request subtype.
func (e *ControlError) Subtype() string {
	return e.subtype
}
