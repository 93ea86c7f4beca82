package messages

// SystemSubtype distinguishes system message payloads.
type SystemSubtype string

const (
	// SystemInit is emitted once when the worker session starts.
	SystemInit SystemSubtype = "init"
	// SystemCompactBoundary marks where the worker compacted history.
	SystemCompactBoundary SystemSubtype = "compact_boundary"
	// SystemHookResponse reports output of a worker-side hook command.
	SystemHookResponse SystemSubtype = "hook_response"
)

// SystemMessage is a system notification from the worker. Data holds the
// payload matching Subtype.
type SystemMessage struct {
	Meta
	Subtype SystemSubtype
	Data    SystemData
}

func (*SystemMessage) message() {}

// SystemData is a sealed union of system payloads.
type SystemData interface {
	systemData()
}

// MCPServerStatus reports the connection state of one MCP server.
type MCPServerStatus struct {
	Name   string
	Status string
}

// InitData is the payload of an init system message.
type InitData struct {
	Cwd            string
	Tools          []string
	MCPServers     []MCPServerStatus
	Model          string
	PermissionMode string
	SlashCommands  []string
	APIKeySource   string
	OutputStyle    string
}

func (*InitData) systemData() {}

// CompactBoundaryData is the payload of a compact_boundary message.
type CompactBoundaryData struct {
	Trigger   string
	PreTokens int
}

func (*CompactBoundaryData) systemData() {}

// HookResponseData is the payload of a hook_response message.
type HookResponseData struct {
	HookName  string
	HookEvent string
	Stdout    string
	Stderr    string
	ExitCode  *int
}

func (*HookResponseData) systemData() {}
