package clauderrs

// ProtocolError represents a message that could not be decoded or encoded.
// A decode failure is fatal to that message only.
type ProtocolError struct {
	*BaseError
	line []byte
}

// NewProtocolError creates a new protocol error.
func NewProtocolError(code ErrorCode, message string, cause error) *ProtocolError {
	return &ProtocolError{
		BaseError: NewBaseError(CategoryProtocol, code, message, cause),
	}
}

// WithMessageType adds the offending message type to the metadata.
func (e *ProtocolError) WithMessageType(messageType string) *ProtocolError {
	e.WithMetadata(MetadataKeyMessageType, messageType)

	return e
}

// WithSessionID adds session ID metadata to the error.
func (e *ProtocolError) WithSessionID(sessionID string) *ProtocolError {
	e.WithMetadata(MetadataKeySessionID, sessionID)

	return e
}

// WithRequestID adds request ID metadata to the error.
func (e *ProtocolError) WithRequestID(requestID string) *ProtocolError {
	e.WithMetadata(MetadataKeyRequestID, requestID)

	return e
}

// WithLine keeps a copy of the raw line that failed to decode.
func (e *ProtocolError) WithLine(line []byte) *ProtocolError {
	e.line = append([]byte(nil), line...)

	return e
}

// Line returns the raw line that failed to decode, if recorded.
func (e *ProtocolError) Line() []byte {
	return e.line
}
