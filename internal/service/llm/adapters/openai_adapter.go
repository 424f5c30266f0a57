package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"reflector/internal/domain/models/llm"
	domainllm "reflector/internal/domain/services/llm"
)

// DefaultOpenAIModel is the model of the default local Ollama deployment.
const DefaultOpenAIModel = "llama3.2:3b"

// OpenAIAdapter implements LLMProvider on any OpenAI-compatible chat completions API
// (OpenAI, OpenRouter, Ollama, vLLM).
type OpenAIAdapter struct {
	client  *openai.Client
	baseURL string
}

// NewOpenAIAdapter creates an adapter against baseURL.
// The key may be empty for local servers such as Ollama.
func NewOpenAIAdapter(apiKey, baseURL string, httpClient *http.Client) *OpenAIAdapter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}
	return &OpenAIAdapter{
		client:  openai.NewClientWithConfig(config),
		baseURL: config.BaseURL,
	}
}

// Name returns the provider name.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// SupportsModel accepts any non-empty model; compatible servers define their own catalogs.
func (a *OpenAIAdapter) SupportsModel(model string) bool {
	return model != ""
}

// GenerateResponse sends one chat completion request with the bound tools.
func (a *OpenAIAdapter) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	messages, err := convertToOpenAIMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Tools:    convertToOpenAITools(req.Tools),
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(chatReq.Tools) > 0 {
		chatReq.ToolChoice = "auto"
	}

	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion against %s failed: %w", a.baseURL, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	return convertFromOpenAIResponse(resp), nil
}

// convertToOpenAITools binds provider-neutral tool definitions as functions.
func convertToOpenAITools(defs []llm.ToolDefinition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}

// convertToOpenAIMessages maps roles one to one; the chat API accepts system
// messages anywhere in the history.
func convertToOpenAIMessages(messages []llm.Message) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for i, msg := range messages {
		m := openai.ChatCompletionMessage{Content: msg.Content}
		switch msg.Role {
		case llm.RoleSystem:
			m.Role = openai.ChatMessageRoleSystem
		case llm.RoleUser:
			m.Role = openai.ChatMessageRoleUser
		case llm.RoleTool:
			m.Role = openai.ChatMessageRoleTool
			m.ToolCallID = msg.ToolCallID
		case llm.RoleAssistant:
			m.Role = openai.ChatMessageRoleAssistant
			for _, call := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(call.Arguments),
					},
				})
			}
		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}
		out = append(out, m)
	}
	return out, nil
}

// convertFromOpenAIResponse reads the first choice.
// Servers that omit tool call ids get positional ids so tool results stay linked.
func convertFromOpenAIResponse(resp openai.ChatCompletionResponse) *domainllm.GenerateResponse {
	choice := resp.Choices[0]

	var calls []llm.ToolCall
	for i, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		calls = append(calls, llm.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: rawArguments(tc.Function.Arguments),
		})
	}

	return &domainllm.GenerateResponse{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   choice.Message.Content,
			ToolCalls: calls,
		},
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		StopReason:   string(choice.FinishReason),
	}
}
