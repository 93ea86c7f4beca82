package clauderrs

// TransportError represents pipe and I/O failures on the worker's stdio.
// It is fatal to the session.
type TransportError struct {
	*BaseError
}

// NewTransportError creates a new transport error.
func NewTransportError(code ErrorCode, message string, cause error) *TransportError {
	return &TransportError{
		BaseError: NewBaseError(CategoryTransport, code, message, cause),
	}
}

// WithSessionID adds session ID metadata to the error.
func (e *TransportError) WithSessionID(sessionID string) *TransportError {
	e.WithMetadata(MetadataKeySessionID, sessionID)

	return e
}

// ProcessError represents worker process lifecycle failures.
type ProcessError struct {
	*BaseError
	exitCode int
	stderr   string
}

// NewProcessError creates a new process error.
func NewProcessError(
	code ErrorCode,
	message string,
	cause error,
	exitCode int,
	stderr string,
) *ProcessError {
	err := &ProcessError{
		BaseError: NewBaseError(CategoryProcess, code, message, cause),
		exitCode:  exitCode,
		stderr:    stderr,
	}
	err.WithMetadata("exit_code", exitCode)
	if stderr != "" {
		err.WithMetadata("stderr", stderr)
	}

	return err
}

// ExitCode returns the process exit code, or -1 when killed by a signal.
func (e *ProcessError) ExitCode() int {
	return e.exitCode
}

// Stderr returns the tail of the process stderr output.
func (e *ProcessError) Stderr() string {
	return e.stderr
}

// WithCommand adds command metadata to the error.
func (e *ProcessError) WithCommand(command string) *ProcessError {
	e.WithMetadata("command", command)

	return e
}
