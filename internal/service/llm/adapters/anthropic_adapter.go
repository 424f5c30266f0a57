package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"reflector/internal/domain/models/llm"
	domainllm "reflector/internal/domain/services/llm"
)

const (
	// DefaultAnthropicModel is used when the request carries no model.
	DefaultAnthropicModel = "claude-haiku-4-5-20251001"

	defaultAnthropicMaxTokens = 1024
)

// AnthropicAdapter implements LLMProvider on the Anthropic Messages API.
type AnthropicAdapter struct {
	client anthropic.Client
}

// NewAnthropicAdapter creates an adapter with the given API key.
// Retries are disabled: adapter failures surface to the caller, who owns retry policy.
func NewAnthropicAdapter(apiKey string, httpClient *http.Client, opts ...option.RequestOption) (*AnthropicAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	return &AnthropicAdapter{
		client: anthropic.NewClient(append(base, opts...)...),
	}, nil
}

// Name returns the provider name.
func (a *AnthropicAdapter) Name() string {
	return "anthropic"
}

// SupportsModel returns true if this provider supports the given model.
// Anthropic models start with "claude-"
func (a *AnthropicAdapter) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// GenerateResponse sends one Messages API request with the bound tools.
func (a *AnthropicAdapter) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	if !a.SupportsModel(model) {
		return nil, fmt.Errorf("model '%s' is not supported by Anthropic provider", model)
	}

	system, rest := splitSystem(req.Messages)
	messages, err := convertToAnthropicMessages(rest)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
		Tools:     convertToAnthropicTools(req.Tools),
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(system, "\n\n")},
		}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}
	return convertFromAnthropicResponse(msg), nil
}

// convertToAnthropicTools binds provider-neutral tool definitions.
func convertToAnthropicTools(defs []llm.ToolDefinition) []anthropic.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: def.Properties(),
				Required:   def.Required(),
			},
		}})
	}
	return out
}

// convertToAnthropicMessages converts non-system messages to Anthropic format.
// Tool results travel as user messages; consecutive messages with the same
// role are merged because the API requires alternating roles.
func convertToAnthropicMessages(messages []llm.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for i, msg := range messages {
		var role anthropic.MessageParamRole
		blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))

		switch msg.Role {
		case llm.RoleUser:
			role = anthropic.MessageParamRoleUser
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		case llm.RoleTool:
			role = anthropic.MessageParamRoleUser
			blocks = append(blocks, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
		case llm.RoleAssistant:
			role = anthropic.MessageParamRoleAssistant
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, rawArguments(string(call.Arguments)), call.Name))
			}
		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}
		if len(blocks) == 0 {
			continue
		}

		if n := len(result); n > 0 && result[n-1].Role == role {
			result[n-1].Content = append(result[n-1].Content, blocks...)
			continue
		}
		result = append(result, anthropic.MessageParam{Role: role, Content: blocks})
	}

	return result, nil
}

// convertFromAnthropicResponse converts an Anthropic response to one assistant message.
func convertFromAnthropicResponse(msg *anthropic.Message) *domainllm.GenerateResponse {
	var text strings.Builder
	var calls []llm.ToolCall

	for _, content := range msg.Content {
		switch content.Type {
		case "text":
			text.WriteString(content.Text)
		case "tool_use":
			calls = append(calls, llm.ToolCall{
				ID:        content.ID,
				Name:      content.Name,
				Arguments: rawArguments(string(content.Input)),
			})
		// Thinking and other block types are not part of the reflect turn
		default:
			continue
		}
	}

	return &domainllm.GenerateResponse{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   text.String(),
			ToolCalls: calls,
		},
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		StopReason:   string(msg.StopReason),
	}
}
