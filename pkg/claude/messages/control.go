package messages

// Control request subtypes sent by the host.
const (
	SubtypeInitialize           = "initialize"
	SubtypeInterrupt            = "interrupt"
	SubtypeSetPermissionMode    = "set_permission_mode"
	SubtypeSetModel             = "set_model"
	SubtypeSetMaxThinkingTokens = "set_max_thinking_tokens"
	SubtypeSupportedCommands    = "supported_commands"
	SubtypeSupportedModels      = "supported_models"
	SubtypeMCPStatus            = "mcp_status"
	SubtypeAccountInfo          = "account_info"
)

// Control request subtypes sent by the worker.
const (
	SubtypeCanUseTool   = "can_use_tool"
	SubtypeHookCallback = "hook_callback"
	SubtypeMCPMessage   = "mcp_message"
)

// Control response subtypes.
const (
	ResponseSuccess = "success"
	ResponseError   = "error"
)

// ControlRequest is a correlated out-of-band request in either direction.
// Payload holds the request body without its subtype.
type ControlRequest struct {
	RequestID string
	Subtype   string
	Payload   map[string]any
}

func (*ControlRequest) message() {}

// ControlResponse answers the ControlRequest with the same RequestID.
type ControlResponse struct {
	RequestID string
	// Subtype is ResponseSuccess or ResponseError.
	Subtype  string
	Response map[string]any
	Error    string
}

func (*ControlResponse) message() {}

// IsError reports whether the response carries an error.
func (r *ControlResponse) IsError() bool {
	return r.Subtype == ResponseError
}

// ControlCancelRequest asks the receiver to abandon an in-flight request.
type ControlCancelRequest struct {
	RequestID string
}

func (*ControlCancelRequest) message() {}

// ToolInvocationRequest is a tool use the worker wants approved. It lives
// only until a verdict is produced.
type ToolInvocationRequest struct {
	RequestID       string
	ToolName        string
	Input           map[string]any
	ToolUseID       string
	ParentToolUseID *string
	// Suggestions are the raw permission_suggestions sent by the worker.
	Suggestions []map[string]any
	BlockedPath *string
}
