package clauderrs

// ToolError is raised by a tool executor or by input validation. It is
// relayed to the worker as an error tool result and never ends the session.
type ToolError struct {
	*BaseError
	toolName  string
	toolUseID string
}

// NewToolError creates a new tool error.
func NewToolError(
	code ErrorCode,
	message string,
	cause error,
	toolName, toolUseID string,
) *ToolError {
	err := &ToolError{
		BaseError: NewBaseError(CategoryTool, code, message, cause),
		toolName:  toolName,
		toolUseID: toolUseID,
	}
	err.WithMetadata(MetadataKeyToolName, toolName)
	err.WithMetadata("tool_use_id", toolUseID)

	return err
}

// ToolName returns the tool that failed.
func (e *ToolError) ToolName() string {
	return e.toolName
}

// ToolUseID returns the invocation that failed.
func (e *ToolError) ToolUseID() string {
	return e.toolUseID
}

// PermissionError records a permission denial. Denials are verdicts, so
// this type only appears as the cause of a cancelled session.
type PermissionError struct {
	*BaseError
	resource string
	action   string
}

// NewPermissionError creates a new permission error.
func NewPermissionError(
	code ErrorCode,
	message string,
	cause error,
	resource, action string,
) *PermissionError {
	err := &PermissionError{
		BaseError: NewBaseError(CategoryPermission, code, message, cause),
		resource:  resource,
		action:    action,
	}
	err.WithMetadata("resource", resource)
	err.WithMetadata("action", action)

	return err
}

// Resource returns the permission resource.
func (e *PermissionError) Resource() string {
	return e.resource
}

// Action returns the permission action.
func (e *PermissionError) Action() string {
	return e.action
}

// SessionError represents a session store failure.
type SessionError struct {
	*BaseError
}

// NewSessionError creates a new session error.
func NewSessionError(code ErrorCode, message string, cause error, sessionID string) *SessionError {
	err := &SessionError{
		BaseError: NewBaseError(CategorySession, code, message, cause),
	}
	err.WithMetadata(MetadataKeySessionID, sessionID)

	return err
}
