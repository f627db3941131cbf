package agent

import "fmt"

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallRequest is a single tool invocation requested by the model.
type ToolCallRequest struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Message is one entry in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCallID links a tool-result message back to the request it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCallRequest `json:"tool_calls,omitempty"`
}

// System creates a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User creates a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant creates a plain assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// AssistantWithTools creates an assistant message carrying tool call requests.
func AssistantWithTools(content string, calls []ToolCallRequest) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResult creates a tool-result message answering the given call.
func ToolResult(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// HasToolCalls reports whether the message requests any tool execution.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// InboundMessage is a message arriving from a chat front end.
type InboundMessage struct {
	Channel string
	ChatID  string
	Sender  string
	Text    string
}

// SessionKey returns the conversation identity for this message.
// Messages with the same key share history and are processed serially.
func (m InboundMessage) SessionKey() string {
	return fmt.Sprintf("%s:%s", m.Channel, m.ChatID)
}

// Usage reports token consumption for one backend call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a single completion returned by a backend client.
type Response struct {
	Content      string
	ToolCalls    []ToolCallRequest
	FinishReason string
	Usage        *Usage
}

// HasToolCalls reports whether the response requests any tool execution.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}
