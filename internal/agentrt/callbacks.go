package agentrt

import "github.com/jholhewres/crewcode/internal/sandbox"

// Status is the agent's lifecycle state during one sendMessage call,
// surfaced to the host UI (spec.md §3's Agent invariant: idle → thinking
// → tool → idle, with error as a terminal branch off thinking/tool).
type Status string

const (
	StatusIdle     Status = "idle"
	StatusThinking Status = "thinking"
	StatusTool     Status = "tool"
	StatusError    Status = "error"
)

// Callbacks is the host's hook surface into one agent's loop, grounded
// on agent.go's SetOnBeforeToolExec/SetOnToolResult setters — trimmed
// to the three events a terminal UI actually needs: a status change to
// render in a spinner, a tool about to run (for permission prompts and
// activity lines), and the tool's result.
type Callbacks struct {
	// OnStatusChange fires whenever the agent's Status changes.
	OnStatusChange func(agentID string, status Status)

	// OnToolCall fires before a tool is dispatched. It is a notification
	// only: it returns nothing and cannot stop the call.
	OnToolCall func(agentID, tool string, args map[string]any)

	// OnToolResult fires after a tool call completes, success or not.
	OnToolResult func(agentID, tool, result string, err error)

	// OnPermissionRequired is the Permission Gateway (spec.md §4.6): a
	// function (toolName, details) → bool consulted before dangerous
	// tools (bash, write, edit) run. Nil defaults to auto-allow.
	OnPermissionRequired func(agentID, tool, details string) bool
}

// dangerousTools is the minimum gated set per spec.md §4.6.
var dangerousTools = map[string]bool{
	"bash":  true,
	"write": true,
	"edit":  true,
}

// permit consults OnPermissionRequired for tools on the dangerous list,
// auto-allowing everything else and auto-allowing when no gateway was
// supplied (spec.md: "defaults are no-op and auto-allow").
func (c Callbacks) permit(agentID, tool, details string) bool {
	if !dangerousTools[tool] {
		return true
	}
	if c.OnPermissionRequired == nil {
		return true
	}
	return c.OnPermissionRequired(agentID, tool, details)
}

func (c Callbacks) statusChange(agentID string, status Status) {
	if c.OnStatusChange != nil {
		c.OnStatusChange(agentID, status)
	}
}

func (c Callbacks) toolCall(agentID string, call sandbox.ToolCall) {
	if c.OnToolCall != nil {
		c.OnToolCall(agentID, call.Tool, call.Args)
	}
}

func (c Callbacks) toolResult(agentID, tool, result string, err error) {
	if c.OnToolResult != nil {
		c.OnToolResult(agentID, tool, result, err)
	}
}
