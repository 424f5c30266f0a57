package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflector/internal/domain/models/llm"
	domainllm "reflector/internal/domain/services/llm"
	"reflector/internal/service/llm/tools"
)

// fakeTransport captures the outgoing request and replies with a canned body.
type fakeTransport struct {
	status  int
	body    string
	request []byte
	calls   int
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if req.Body != nil {
		f.request, _ = io.ReadAll(req.Body)
	}
	resp := &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewBufferString(f.body)),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func reflectRequest(model string) *domainllm.GenerateRequest {
	return &domainllm.GenerateRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "make b1 shorter"},
			{Role: llm.RoleSystem, Content: "Current editor blocks:\nBlock b1:\nx"},
		},
		Tools:     tools.BuildWithDefaults(nil).Definitions(),
		Model:     model,
		MaxTokens: 256,
	}
}

func newTestAnthropicAdapter(t *testing.T, rt http.RoundTripper) *AnthropicAdapter {
	t.Helper()
	adapter, err := NewAnthropicAdapter("test-key", &http.Client{Transport: rt})
	require.NoError(t, err)
	return adapter
}

func TestNewAnthropicAdapter_RequiresKey(t *testing.T) {
	_, err := NewAnthropicAdapter("", nil)
	assert.Error(t, err)
}

func TestAnthropicAdapter_GenerateResponse_ToolUse(t *testing.T) {
	transport := &fakeTransport{status: 200, body: `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-haiku-4-5-20251001",
		"content": [
			{"type": "text", "text": "Shortening it."},
			{"type": "tool_use", "id": "toolu_1", "name": "update_block", "input": {"block_id": "b1", "content": "y"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 42, "output_tokens": 7}
	}`}
	adapter := newTestAnthropicAdapter(t, transport)

	resp, err := adapter.GenerateResponse(context.Background(), reflectRequest("claude-haiku-4-5-20251001"))
	require.NoError(t, err)

	assert.Equal(t, llm.RoleAssistant, resp.Message.Role)
	assert.Equal(t, "Shortening it.", resp.Message.Content)
	require.Len(t, resp.Message.ToolCalls, 1)
	call := resp.Message.ToolCalls[0]
	assert.Equal(t, "toolu_1", call.ID)
	assert.Equal(t, "update_block", call.Name)
	assert.JSONEq(t, `{"block_id":"b1","content":"y"}`, string(call.Arguments))
	assert.Equal(t, 42, resp.InputTokens)
	assert.Equal(t, 7, resp.OutputTokens)
	assert.Equal(t, "tool_use", resp.StopReason)

	var sent struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
		Tools []struct {
			Name        string                 `json:"name"`
			Description string                 `json:"description"`
			InputSchema map[string]interface{} `json:"input_schema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(transport.request, &sent))
	assert.Equal(t, "claude-haiku-4-5-20251001", sent.Model)
	assert.Equal(t, 256, sent.MaxTokens)
	require.Len(t, sent.System, 1)
	assert.Contains(t, sent.System[0].Text, "Current editor blocks:")
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "user", sent.Messages[0].Role)
	require.Len(t, sent.Tools, 1)
	assert.Equal(t, "update_block", sent.Tools[0].Name)
	assert.Equal(t, "Update a block in the editor.", sent.Tools[0].Description)
	assert.Equal(t, "object", sent.Tools[0].InputSchema["type"])
}

func TestAnthropicAdapter_GenerateResponse_APIErrorIsNotRetried(t *testing.T) {
	transport := &fakeTransport{status: 529, body: `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`}
	adapter := newTestAnthropicAdapter(t, transport)

	_, err := adapter.GenerateResponse(context.Background(), reflectRequest(""))

	assert.Error(t, err)
	assert.Equal(t, 1, transport.calls)
}

func TestAnthropicAdapter_RejectsForeignModel(t *testing.T) {
	transport := &fakeTransport{status: 200, body: `{}`}
	adapter := newTestAnthropicAdapter(t, transport)

	_, err := adapter.GenerateResponse(context.Background(), reflectRequest("llama3.2:3b"))

	assert.Error(t, err)
	assert.Zero(t, transport.calls)
}

func TestConvertToAnthropicMessages_MergesRoles(t *testing.T) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: "edit"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "t1", Name: "update_block", Arguments: json.RawMessage(`{"block_id":"b1","content":"y"}`)},
			{ID: "t2", Name: "update_block", Arguments: json.RawMessage(`{"block_id":"b2","content":"z"}`)},
		}},
		{Role: llm.RoleTool, ToolCallID: "t1", Content: `{"success":true}`},
		{Role: llm.RoleTool, ToolCallID: "t2", Content: `{"success":false}`},
	}

	params, err := convertToAnthropicMessages(messages)
	require.NoError(t, err)

	require.Len(t, params, 3)
	assert.Len(t, params[1].Content, 2)
	assert.Len(t, params[2].Content, 2, "tool results share one user message")
}

func TestConvertToAnthropicMessages_RejectsSystem(t *testing.T) {
	_, err := convertToAnthropicMessages([]llm.Message{{Role: llm.RoleSystem, Content: "x"}})
	assert.Error(t, err)
}
