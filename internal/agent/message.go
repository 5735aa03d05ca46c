package agent

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by the reasoner. Arguments are the
// decoded JSON arguments keyed by parameter name.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolResult is the outcome of dispatching one ToolCall, paired with its
// request by ID. Content holds the JSON-encoded tool output, or the error
// message when IsError is set; Kind carries the error classification so the
// reasoner can distinguish correctable mistakes from backend failures.
type ToolResult struct {
	ID      string
	Content string
	IsError bool
	Kind    string
}

// Message is one entry in a conversation history. Messages are immutable once
// created; the history is append-only.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall // set only on assistant messages that request tools
	ToolCallID string     // set only on tool messages, correlating to a request
}

// SystemMessage creates a system instruction message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user input message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ToolMessage creates the history entry for a tool result.
func ToolMessage(result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    result.Content,
		ToolCallID: result.ID,
	}
}
