package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"reflector/internal/domain"
	"reflector/internal/domain/models"
	"reflector/internal/domain/models/llm"
	domainllm "reflector/internal/domain/services/llm"
	"reflector/internal/service/llm/conversation"
	"reflector/internal/service/llm/tools"
)

const scopeName = "reflector/internal/service/llm"

// TurnState is a stage of a reflect turn. A turn only moves forward, one stage at a time.
type TurnState int

const (
	TurnStart TurnState = iota
	TurnContextBuilt
	TurnModelInvoked
	TurnResolved
	TurnDone
)

func (s TurnState) String() string {
	switch s {
	case TurnStart:
		return "START"
	case TurnContextBuilt:
		return "CONTEXT_BUILT"
	case TurnModelInvoked:
		return "MODEL_INVOKED"
	case TurnResolved:
		return "RESOLVED"
	case TurnDone:
		return "DONE"
	default:
		return fmt.Sprintf("TurnState(%d)", int(s))
	}
}

// TurnConfig holds the per-process settings of a reflect turn.
type TurnConfig struct {
	Model          string
	MaxTokens      int
	AdapterTimeout time.Duration // zero disables the timeout

	// TracerProvider records turn spans; nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// TurnResult is the final conversation state of a completed turn.
type TurnResult struct {
	State        TurnState
	ThreadID     string
	Messages     []llm.Message
	Document     models.Document
	Outcomes     []tools.Outcome
	Model        string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// Rejected returns the tool calls that were dropped during resolution.
func (r *TurnResult) Rejected() []tools.Outcome {
	return tools.Resolution{Outcomes: r.Outcomes}.Rejected()
}

// TurnExecutor runs reflect turns: build context, invoke the model once,
// resolve its tool calls against the document.
//
// Thread-safety: a TurnExecutor holds no per-turn state and may be shared.
// Callers serialize turns of the same thread.
type TurnExecutor struct {
	provider domainllm.LLMProvider
	tools    *tools.ToolRegistry
	config   TurnConfig
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewTurnExecutor creates a TurnExecutor bound to one provider and tool registry.
func NewTurnExecutor(
	provider domainllm.LLMProvider,
	registry *tools.ToolRegistry,
	config TurnConfig,
	logger *slog.Logger,
) *TurnExecutor {
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TurnExecutor{
		provider: provider,
		tools:    registry,
		config:   config,
		tracer:   tp.Tracer(scopeName),
		logger:   logger,
	}
}

// ProviderName returns the name of the bound adapter.
func (e *TurnExecutor) ProviderName() string {
	return e.provider.Name()
}

// turn tracks the stage of one execution.
type turn struct {
	state TurnState
	conv  *conversation.State
}

func (t *turn) advance(to TurnState) error {
	if to != t.state+1 {
		return fmt.Errorf("invalid turn transition %s -> %s", t.state, to)
	}
	t.state = to
	return nil
}

// Execute runs one turn over a fresh conversation state.
//
// Adapter failures are returned as *domain.AdapterError or *domain.AdapterTimeoutError;
// in that case no tool call is applied and state.Document is left as it was.
// Rejected tool calls never fail the turn.
func (e *TurnExecutor) Execute(ctx context.Context, state *conversation.State, prompt string) (*TurnResult, error) {
	ctx, span := e.tracer.Start(ctx, "reflect turn",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("thread.id", state.ThreadID),
			attribute.String("llm.provider", e.provider.Name()),
			attribute.Int("document.blocks", len(state.Document.Blocks)),
		),
	)
	defer span.End()

	t := &turn{state: TurnStart, conv: state}

	// START -> CONTEXT_BUILT
	t.conv.AppendMessage(llm.RoleUser, prompt)
	t.conv.AppendContextMessage()
	if err := t.advance(TurnContextBuilt); err != nil {
		return nil, err
	}

	// CONTEXT_BUILT -> MODEL_INVOKED
	resp, err := e.invoke(ctx, t.conv)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("reflect turn failed",
			"thread_id", t.conv.ThreadID,
			"provider", e.provider.Name(),
			"error", err,
		)
		return nil, err
	}
	if err := t.advance(TurnModelInvoked); err != nil {
		return nil, err
	}

	// MODEL_INVOKED -> RESOLVED
	t.conv.AppendAssistant(resp.Message)
	resolution := e.tools.Resolve(t.conv.Document, resp.Message.ToolCalls)
	t.conv.Document = resolution.Document
	for _, outcome := range resolution.Outcomes {
		t.conv.AppendToolResult(outcome.Call.ID, outcome.ResultJSON())
		if !outcome.Applied() {
			e.logger.Warn("tool call rejected",
				"thread_id", t.conv.ThreadID,
				"tool_call_id", outcome.Call.ID,
				"tool_name", outcome.Call.Name,
				"error", outcome.Err,
			)
		}
	}
	if err := t.advance(TurnResolved); err != nil {
		return nil, err
	}

	// RESOLVED -> DONE
	if err := t.advance(TurnDone); err != nil {
		return nil, err
	}

	rejected := len(resolution.Outcomes) - resolution.AppliedCount()
	span.SetAttributes(
		attribute.Int("tool_calls.count", len(resolution.Outcomes)),
		attribute.Int("tool_calls.rejected", rejected),
		attribute.String("response.model", resp.Model),
	)
	e.logger.Debug("reflect turn completed",
		"thread_id", t.conv.ThreadID,
		"model", resp.Model,
		"tool_calls", len(resolution.Outcomes),
		"applied", resolution.AppliedCount(),
		"rejected", rejected,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	)

	snap := t.conv.Snapshot()
	return &TurnResult{
		State:        t.state,
		ThreadID:     snap.ThreadID,
		Messages:     snap.Messages,
		Document:     snap.Document,
		Outcomes:     resolution.Outcomes,
		Model:        resp.Model,
		StopReason:   resp.StopReason,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

// invoke calls the adapter once under the configured timeout and
// normalizes failures into adapter errors.
func (e *TurnExecutor) invoke(ctx context.Context, conv *conversation.State) (*domainllm.GenerateResponse, error) {
	callCtx := ctx
	if e.config.AdapterTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.config.AdapterTimeout)
		defer cancel()
	}

	req := &domainllm.GenerateRequest{
		Messages:  llm.CloneMessages(conv.Messages),
		Tools:     e.tools.Definitions(),
		Model:     e.config.Model,
		MaxTokens: e.config.MaxTokens,
		ThreadID:  conv.ThreadID,
	}

	start := time.Now()
	resp, err := e.provider.GenerateResponse(callCtx, req)
	e.logger.Debug("llm adapter returned",
		"provider", e.provider.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err,
	)

	if err != nil {
		var timeoutErr *domain.AdapterTimeoutError
		var adapterErr *domain.AdapterError
		// Only the configured timeout is reported as one; a parent deadline is a plain adapter failure.
		timedOut := e.config.AdapterTimeout > 0 &&
			ctx.Err() == nil &&
			errors.Is(callCtx.Err(), context.DeadlineExceeded)
		switch {
		case errors.As(err, &timeoutErr), errors.As(err, &adapterErr):
			return nil, err
		case timedOut:
			return nil, &domain.AdapterTimeoutError{Provider: e.provider.Name(), Timeout: e.config.AdapterTimeout}
		default:
			return nil, &domain.AdapterError{Provider: e.provider.Name(), Err: err}
		}
	}
	if resp == nil {
		return nil, &domain.AdapterError{Provider: e.provider.Name(), Err: errors.New("empty response")}
	}
	return resp, nil
}
