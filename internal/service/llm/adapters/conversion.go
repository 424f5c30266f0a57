package adapters

import (
	"encoding/json"
	"strings"

	llmprovider "github.com/haowjy/meridian-llm-go"

	"reflector/internal/domain/models/llm"
	domainllm "reflector/internal/domain/services/llm"
)

const blockTypeText = "text"

// convertToLibraryRequest converts a GenerateRequest to the meridian-llm-go request shape.
// The library has no tool binding for the lorem provider, so tool traffic is rendered as text.
func convertToLibraryRequest(req *domainllm.GenerateRequest) *llmprovider.GenerateRequest {
	messages := make([]llmprovider.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := string(msg.Role)
		if msg.Role == llm.RoleTool {
			role = string(llm.RoleUser)
		}
		text := msg.Content
		messages = append(messages, llmprovider.Message{
			Role: role,
			Blocks: []*llmprovider.Block{{
				BlockType:   blockTypeText,
				Sequence:    0,
				TextContent: &text,
			}},
		})
	}

	return &llmprovider.GenerateRequest{
		Messages: messages,
		Model:    req.Model,
	}
}

// convertFromLibraryResponse flattens the library's content blocks into one assistant message.
// Text blocks are concatenated in sequence order; tool_use blocks become tool calls.
func convertFromLibraryResponse(resp *llmprovider.GenerateResponse) *domainllm.GenerateResponse {
	var text strings.Builder
	var calls []llm.ToolCall
	for _, block := range resp.Blocks {
		if block == nil {
			continue
		}
		switch block.BlockType {
		case blockTypeText:
			if block.TextContent != nil {
				text.WriteString(*block.TextContent)
			}
		case "tool_use":
			// Only reached by library providers that emit tool calls; lorem never does.
			if call, ok := toolCallFromBlockContent(block.Content); ok {
				calls = append(calls, call)
			}
		}
	}

	return &domainllm.GenerateResponse{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   text.String(),
			ToolCalls: calls,
		},
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		StopReason:   resp.StopReason,
	}
}

// toolCallFromBlockContent reads {"tool_use_id","tool_name","input"} block content.
func toolCallFromBlockContent(content map[string]interface{}) (llm.ToolCall, bool) {
	name, _ := content["tool_name"].(string)
	if name == "" {
		return llm.ToolCall{}, false
	}
	id, _ := content["tool_use_id"].(string)
	args, err := marshalArguments(content["input"])
	if err != nil {
		return llm.ToolCall{}, false
	}
	return llm.ToolCall{ID: id, Name: name, Arguments: args}, true
}

// marshalArguments encodes decoded tool input back to raw JSON.
// Validation happens in the tools package.
func marshalArguments(input interface{}) (json.RawMessage, error) {
	switch v := input.(type) {
	case nil:
		return json.RawMessage(`{}`), nil
	case string:
		return rawArguments(v), nil
	case json.RawMessage:
		return rawArguments(string(v)), nil
	default:
		return json.Marshal(v)
	}
}

// rawArguments keeps valid JSON as is and quotes anything else,
// so the conversation log always stays encodable.
func rawArguments(s string) json.RawMessage {
	if strings.TrimSpace(s) == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}

// splitSystem separates system messages from the conversation.
// Providers with a dedicated system parameter receive them joined in order.
func splitSystem(messages []llm.Message) (system []string, rest []llm.Message) {
	rest = make([]llm.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}
