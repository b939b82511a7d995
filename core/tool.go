package core

// Reserved control tool names. They are always offered to agents and are
// routed to the command channel instead of the capability registry.
const (
	PauseToolName  = "pause_execution"
	ResumeToolName = "resume_execution"
)

// PrivatePrefix marks capability names that are never exposed to agents.
const PrivatePrefix = "_"

// Tool describes a capability exposed to an agent.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ControlTools returns fresh descriptors for the reserved control tools.
func ControlTools() []Tool {
	return []Tool{
		{Name: PauseToolName, Description: "Pause the test execution", Parameters: map[string]any{"reason": "str"}},
		{Name: ResumeToolName, Description: "Resume the test execution", Parameters: map[string]any{}},
	}
}

// IsControlTool reports whether name is one of the reserved control tools.
func IsControlTool(name string) bool {
	return name == PauseToolName || name == ResumeToolName
}
