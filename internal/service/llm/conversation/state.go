package conversation

import (
	"strings"

	"reflector/internal/domain/models"
	"reflector/internal/domain/models/llm"
)

// contextHeader opens the system message that grounds the model in the editor state.
const contextHeader = "Current editor blocks:"

// State is the message history and current document of one reflection session.
// It is owned by a single turn and is not safe for concurrent use.
type State struct {
	ThreadID string
	Messages []llm.Message
	Document models.Document
}

// NewState creates an empty conversation over doc.
func NewState(threadID string, doc models.Document) *State {
	return &State{
		ThreadID: threadID,
		Messages: make([]llm.Message, 0, 4),
		Document: doc.Clone(),
	}
}

// AppendMessage appends a plain text message.
func (s *State) AppendMessage(role llm.Role, text string) {
	s.Messages = append(s.Messages, llm.Message{Role: role, Content: text})
}

// AppendContextMessage appends a system message listing every block of the
// current document, in document order.
func (s *State) AppendContextMessage() {
	s.AppendMessage(llm.RoleSystem, FormatContext(s.Document))
}

// AppendAssistant records the model's response, including its tool calls.
func (s *State) AppendAssistant(msg llm.Message) {
	msg.Role = llm.RoleAssistant
	s.Messages = append(s.Messages, llm.CloneMessages([]llm.Message{msg})...)
}

// AppendToolResult records the outcome of one tool call.
func (s *State) AppendToolResult(callID, text string) {
	s.Messages = append(s.Messages, llm.Message{
		Role:       llm.RoleTool,
		Content:    text,
		ToolCallID: callID,
	})
}

// Snapshot returns a deep copy that shares no memory with the live state.
func (s *State) Snapshot() State {
	return State{
		ThreadID: s.ThreadID,
		Messages: llm.CloneMessages(s.Messages),
		Document: s.Document.Clone(),
	}
}

// FormatContext renders doc as the context message body:
//
//	Current editor blocks:
//	Block b1:
//	first block content
//	Block b2:
//	...
func FormatContext(doc models.Document) string {
	var sb strings.Builder
	sb.WriteString(contextHeader)
	for _, b := range doc.Blocks {
		sb.WriteString("\nBlock ")
		sb.WriteString(b.ID)
		sb.WriteString(":\n")
		sb.WriteString(b.Content)
	}
	return sb.String()
}
