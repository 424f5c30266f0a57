package llm

import (
	"context"

	"reflector/internal/domain/models/llm"
)

// LLMProvider defines the interface that all LLM adapters must implement.
// This abstraction allows supporting multiple providers (Anthropic, OpenAI-compatible, etc.)
// while the turn orchestrator stays provider agnostic.
//
// Implementations must be safe for concurrent use: one instance is shared by all requests.
type LLMProvider interface {
	// GenerateResponse sends the conversation plus the bound tools and returns one message.
	GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Name returns the provider name (e.g., "anthropic", "openai")
	Name() string

	// SupportsModel returns true if the provider supports the given model.
	SupportsModel(model string) bool
}

// GenerateRequest contains the parameters for an LLM generation request.
type GenerateRequest struct {
	// Messages contains the full conversation history, system messages included.
	Messages []llm.Message

	// Tools are the capabilities the model may call.
	Tools []llm.ToolDefinition

	// Model is the model identifier (e.g., "llama3.2:3b")
	Model string

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int

	// ThreadID correlates the request with a conversation thread. Adapters may ignore it.
	ThreadID string
}

// GenerateResponse contains the LLM provider's response.
type GenerateResponse struct {
	// Message is the assistant message; ToolCalls holds any requested calls in order.
	Message llm.Message

	// Model is the model that was used (may differ from request if aliased)
	Model string

	// InputTokens is the number of tokens in the input
	InputTokens int

	// OutputTokens is the number of tokens in the output
	OutputTokens int

	// StopReason indicates why generation stopped (e.g., "end_turn", "tool_use")
	StopReason string
}
