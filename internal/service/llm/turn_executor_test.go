package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"reflector/internal/domain"
	"reflector/internal/domain/models"
	"reflector/internal/domain/models/llm"
	domainllm "reflector/internal/domain/services/llm"
	"reflector/internal/service/llm/conversation"
	"reflector/internal/service/llm/tools"
)

// fakeProvider returns a canned response and records requests.
type fakeProvider struct {
	mu       sync.Mutex
	requests []*domainllm.GenerateRequest
	calls    []llm.ToolCall
	err      error
	block    bool
}

func (p *fakeProvider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	return &domainllm.GenerateResponse{
		Message:    llm.Message{Role: llm.RoleAssistant, Content: "ok", ToolCalls: p.calls},
		Model:      "fake-model",
		StopReason: "end_turn",
	}, nil
}

func (p *fakeProvider) Name() string             { return "fake" }
func (p *fakeProvider) SupportsModel(string) bool { return true }

func (p *fakeProvider) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func updateCall(id, blockID, content string) llm.ToolCall {
	args, _ := json.Marshal(map[string]string{"block_id": blockID, "content": content})
	return llm.ToolCall{ID: id, Name: tools.UpdateBlockToolName, Arguments: args}
}

func newTestExecutor(p domainllm.LLMProvider, timeout time.Duration) *TurnExecutor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTurnExecutor(p, tools.BuildWithDefaults(nil), TurnConfig{Model: "fake-model", AdapterTimeout: timeout}, logger)
}

func sampleDocument() models.Document {
	return models.NewDocument(
		models.Block{ID: "b1", Content: "x"},
		models.Block{ID: "b2", Content: "second"},
		models.Block{ID: "b3", Content: "third"},
	)
}

func TestTurnState_String(t *testing.T) {
	assert.Equal(t, "START", TurnStart.String())
	assert.Equal(t, "CONTEXT_BUILT", TurnContextBuilt.String())
	assert.Equal(t, "MODEL_INVOKED", TurnModelInvoked.String())
	assert.Equal(t, "RESOLVED", TurnResolved.String())
	assert.Equal(t, "DONE", TurnDone.String())
	assert.Equal(t, "TurnState(9)", TurnState(9).String())
}

func TestTurn_Advance(t *testing.T) {
	tr := &turn{state: TurnStart}

	require.NoError(t, tr.advance(TurnContextBuilt))
	assert.Error(t, tr.advance(TurnResolved), "skipping a stage must fail")
	assert.Error(t, tr.advance(TurnStart), "moving backwards must fail")
	assert.Equal(t, TurnContextBuilt, tr.state)
}

func TestTurnExecutor_NoToolCalls(t *testing.T) {
	provider := &fakeProvider{}
	executor := newTestExecutor(provider, time.Second)
	doc := sampleDocument()

	result, err := executor.Execute(context.Background(), conversation.NewState("t1", doc), "tighten the prose")
	require.NoError(t, err)

	assert.Equal(t, TurnDone, result.State)
	assert.True(t, result.Document.Equal(doc))
	assert.Empty(t, result.Outcomes)
	assert.Equal(t, "fake-model", result.Model)
	assert.Equal(t, 1, provider.requestCount())
}

func TestTurnExecutor_RequestCarriesContextAndTools(t *testing.T) {
	provider := &fakeProvider{}
	executor := newTestExecutor(provider, time.Second)

	_, err := executor.Execute(context.Background(), conversation.NewState("t1", sampleDocument()), "tighten the prose")
	require.NoError(t, err)

	req := provider.requests[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "tighten the prose", req.Messages[0].Content)
	assert.Equal(t, llm.RoleSystem, req.Messages[1].Role)
	assert.Equal(t, "Current editor blocks:\nBlock b1:\nx\nBlock b2:\nsecond\nBlock b3:\nthird", req.Messages[1].Content)

	require.Len(t, req.Tools, 1)
	assert.Equal(t, "update_block", req.Tools[0].Name)
	assert.Equal(t, "fake-model", req.Model)
	assert.Equal(t, "t1", req.ThreadID)
}

func TestTurnExecutor_AppliesToolCalls(t *testing.T) {
	provider := &fakeProvider{calls: []llm.ToolCall{updateCall("c1", "b1", "y")}}
	executor := newTestExecutor(provider, time.Second)

	result, err := executor.Execute(context.Background(), conversation.NewState("t1", sampleDocument()), "edit")
	require.NoError(t, err)

	assert.Equal(t, []models.Block{
		{ID: "b1", Content: "y"},
		{ID: "b2", Content: "second"},
		{ID: "b3", Content: "third"},
	}, result.Document.Blocks)

	// user, context, assistant, one tool result
	require.Len(t, result.Messages, 4)
	assert.Equal(t, llm.RoleAssistant, result.Messages[2].Role)
	assert.Equal(t, llm.RoleTool, result.Messages[3].Role)
	assert.Equal(t, "c1", result.Messages[3].ToolCallID)
	assert.JSONEq(t, `{"success":true,"message":"Block updated"}`, result.Messages[3].Content)
}

func TestTurnExecutor_LastAppliedWins(t *testing.T) {
	provider := &fakeProvider{calls: []llm.ToolCall{
		updateCall("c1", "b1", "y"),
		updateCall("c2", "b1", "z"),
	}}
	executor := newTestExecutor(provider, time.Second)

	result, err := executor.Execute(context.Background(), conversation.NewState("t1", sampleDocument()), "edit")
	require.NoError(t, err)

	block, ok := result.Document.Block("b1")
	require.True(t, ok)
	assert.Equal(t, "z", block.Content)
}

func TestTurnExecutor_RejectedCallsAreNotFatal(t *testing.T) {
	provider := &fakeProvider{calls: []llm.ToolCall{
		updateCall("c1", "missing", "z"),
		{ID: "c2", Name: "update_block", Arguments: json.RawMessage(`{"block_id":"b2"}`)},
		updateCall("c3", "b3", "changed"),
	}}
	executor := newTestExecutor(provider, time.Second)

	result, err := executor.Execute(context.Background(), conversation.NewState("t1", sampleDocument()), "edit")
	require.NoError(t, err)

	assert.Equal(t, []models.Block{
		{ID: "b1", Content: "x"},
		{ID: "b2", Content: "second"},
		{ID: "b3", Content: "changed"},
	}, result.Document.Blocks)

	rejected := result.Rejected()
	require.Len(t, rejected, 2)
	assert.ErrorIs(t, rejected[0].Err, domain.ErrNotFound)
	assert.ErrorIs(t, rejected[1].Err, domain.ErrValidation)
	assert.Len(t, result.Messages, 2+1+3)
}

func TestTurnExecutor_AdapterError(t *testing.T) {
	cause := errors.New("connection refused")
	provider := &fakeProvider{err: cause}
	executor := newTestExecutor(provider, time.Second)
	doc := sampleDocument()
	state := conversation.NewState("t1", doc)

	result, err := executor.Execute(context.Background(), state, "edit")

	assert.Nil(t, result)
	var adapterErr *domain.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "fake", adapterErr.Provider)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, domain.ErrAdapter)
	assert.True(t, state.Document.Equal(doc))
}

func TestTurnExecutor_AdapterTimeout(t *testing.T) {
	provider := &fakeProvider{block: true}
	executor := newTestExecutor(provider, 20*time.Millisecond)

	start := time.Now()
	_, err := executor.Execute(context.Background(), conversation.NewState("t1", sampleDocument()), "edit")

	var timeoutErr *domain.AdapterTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 20*time.Millisecond, timeoutErr.Timeout)
	assert.ErrorIs(t, err, domain.ErrAdapterTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTurnExecutor_ParentDeadlineIsNotAdapterTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{"timeout disabled", 0},
		{"timeout longer than parent deadline", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := newTestExecutor(&fakeProvider{block: true}, tt.timeout)
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			_, err := executor.Execute(ctx, conversation.NewState("t1", sampleDocument()), "edit")

			var timeoutErr *domain.AdapterTimeoutError
			assert.False(t, errors.As(err, &timeoutErr), "got %v", err)
			assert.ErrorIs(t, err, domain.ErrAdapter)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

func TestTurnExecutor_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	provider := &fakeProvider{calls: []llm.ToolCall{
		updateCall("c1", "b1", "y"),
		updateCall("c2", "missing", "z"),
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	executor := NewTurnExecutor(provider, tools.BuildWithDefaults(nil), TurnConfig{
		Model:          "fake-model",
		AdapterTimeout: time.Second,
		TracerProvider: tp,
	}, logger)

	_, err := executor.Execute(context.Background(), conversation.NewState("t1", sampleDocument()), "edit")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "reflect turn", spans[0].Name())

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "t1", attrs["thread.id"].AsString())
	assert.Equal(t, "fake", attrs["llm.provider"].AsString())
	assert.Equal(t, int64(3), attrs["document.blocks"].AsInt64())
	assert.Equal(t, int64(2), attrs["tool_calls.count"].AsInt64())
	assert.Equal(t, int64(1), attrs["tool_calls.rejected"].AsInt64())
	assert.Equal(t, "fake-model", attrs["response.model"].AsString())
}

func TestTurnExecutor_FailedTurnSpanHasErrorStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	executor := NewTurnExecutor(&fakeProvider{err: errors.New("refused")}, tools.BuildWithDefaults(nil), TurnConfig{
		TracerProvider: tp,
	}, logger)

	_, err := executor.Execute(context.Background(), conversation.NewState("t1", sampleDocument()), "edit")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTurnExecutor_EmptyResponse(t *testing.T) {
	executor := newTestExecutor(nilProvider{}, time.Second)

	_, err := executor.Execute(context.Background(), conversation.NewState("t1", sampleDocument()), "edit")
	assert.ErrorIs(t, err, domain.ErrAdapter)
}

type nilProvider struct{}

func (nilProvider) GenerateResponse(context.Context, *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	return nil, nil
}
func (nilProvider) Name() string              { return "nil" }
func (nilProvider) SupportsModel(string) bool { return true }
