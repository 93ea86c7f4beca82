package messages

// ResultSubtype distinguishes how a turn ended.
type ResultSubtype string

const (
	// ResultSuccess marks a turn that completed normally.
	ResultSuccess ResultSubtype = "success"
	// ResultErrorMaxTurns marks a turn stopped by the max-turns limit.
	ResultErrorMaxTurns ResultSubtype = "error_max_turns"
	// ResultErrorDuringExecution marks a turn that failed inside the worker.
	ResultErrorDuringExecution ResultSubtype = "error_during_execution"
)

// Valid reports whether s is one of the known result subtypes.
func (s ResultSubtype) Valid() bool {
	switch s {
	case ResultSuccess, ResultErrorMaxTurns, ResultErrorDuringExecution:
		return true
	default:
		return false
	}
}

// ResultMessage is the terminal message of a turn.
type ResultMessage struct {
	Meta
	Subtype       ResultSubtype
	DurationMS    int
	DurationAPIMS int
	IsError       bool
	NumTurns      int
	Result        *string
	TotalCostUSD  *float64
	// Usage is the raw token accounting reported by the worker.
	Usage             map[string]any
	PermissionDenials []DeniedTool
}

func (*ResultMessage) message() {}

// DeniedTool is one entry of a result's permission_denials list.
type DeniedTool struct {
	ToolName  string
	ToolUseID string
	ToolInput map[string]any
}

// PermissionDenial is synthesized by the host when a tool invocation was
// refused by a hook or the permission arbiter. It is surfaced to the caller
// and recorded in the transcript.
type PermissionDenial struct {
	Meta
	ToolName  string
	ToolUseID string
	ToolInput map[string]any
	Message   string
	Interrupt bool
	// Source names the stage that refused: "hook", "plan", "rule",
	// "callback" or "default".
	Source string
}

func (*PermissionDenial) message() {}
