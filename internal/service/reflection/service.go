// Package reflection implements the reflect facade: validate the document,
// run one turn under the thread lock, persist the conversation log.
package reflection

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"reflector/internal/config"
	"reflector/internal/domain"
	"reflector/internal/domain/models"
	llmModels "reflector/internal/domain/models/llm"
	llmRepo "reflector/internal/domain/repositories/llm"
	"reflector/internal/domain/services"
	llmSvc "reflector/internal/service/llm"
	"reflector/internal/service/llm/conversation"
)

// TurnRunner executes a single reflect turn.
type TurnRunner interface {
	Execute(ctx context.Context, state *conversation.State, prompt string) (*llmSvc.TurnResult, error)
	ProviderName() string
}

// Service implements services.ReflectService
type Service struct {
	runner   TurnRunner
	sessions llmRepo.SessionRepository
	locks    *threadLocks
	logger   *slog.Logger
}

// NewService creates a new reflect service
func NewService(runner TurnRunner, sessions llmRepo.SessionRepository, logger *slog.Logger) *Service {
	return &Service{
		runner:   runner,
		sessions: sessions,
		locks:    newThreadLocks(),
		logger:   logger,
	}
}

var _ services.ReflectService = (*Service)(nil)

// ProcessReflectionRequest validates the request, runs one turn and returns the
// resolved document. The caller's document is never modified.
//
// Errors:
//   - wraps domain.ErrValidation for malformed requests
//   - *domain.InvalidDocumentError for duplicate block ids, before any model call
//   - *domain.AdapterError / *domain.AdapterTimeoutError when the model call fails
func (s *Service) ProcessReflectionRequest(ctx context.Context, req *services.ReflectRequest) (*services.ReflectResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", domain.ErrValidation)
	}
	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := req.Document.Validate(); err != nil {
		return nil, err
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	release, err := s.locks.acquire(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("wait for thread %s: %w", threadID, err)
	}
	defer release()

	result, err := s.runner.Execute(ctx, conversation.NewState(threadID, req.Document), req.Prompt)
	if err != nil {
		return nil, err
	}

	s.saveSession(ctx, req, result)

	return &services.ReflectResponse{Document: result.Document}, nil
}

// ListThreadSessions returns the persisted turns of a thread, oldest first
func (s *Service) ListThreadSessions(ctx context.Context, threadID string) ([]llmModels.ReflectSession, error) {
	err := validation.Validate(threadID,
		validation.Required,
		validation.RuneLength(1, config.MaxThreadIDLength),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: thread_id: %v", domain.ErrValidation, err)
	}
	return s.sessions.ListByThread(ctx, threadID)
}

// saveSession persists the conversation log. A failed write is logged and
// does not fail the turn: the resolved document is already computed.
func (s *Service) saveSession(ctx context.Context, req *services.ReflectRequest, result *llmSvc.TurnResult) {
	session := &llmModels.ReflectSession{
		ThreadID: result.ThreadID,
		UserID:   req.UserID,
		Prompt:   req.Prompt,
		Provider: s.runner.ProviderName(),
		Model:    result.Model,
		Messages: result.Messages,
		Document: result.Document,
	}
	for _, outcome := range result.Rejected() {
		session.Rejections = append(session.Rejections, llmModels.ToolRejection{
			CallID:   outcome.Call.ID,
			ToolName: outcome.Call.Name,
			Reason:   outcome.Err.Error(),
		})
	}

	if err := s.sessions.SaveSession(context.WithoutCancel(ctx), session); err != nil {
		s.logger.Error("failed to save reflect session",
			"thread_id", result.ThreadID,
			"error", err,
		)
		return
	}
	s.logger.Info("reflect session saved",
		"session_id", session.ID,
		"thread_id", session.ThreadID,
		"rejected", len(session.Rejections),
	)
}

func validateRequest(req *services.ReflectRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.ThreadID, validation.RuneLength(0, config.MaxThreadIDLength)),
		validation.Field(&req.Prompt, validation.RuneLength(0, config.MaxPromptLength)),
	)
	if err != nil {
		return err
	}

	return validation.ValidateStruct(&req.Document,
		validation.Field(&req.Document.Blocks,
			validation.Length(0, config.MaxBlocks),
			validation.Each(validation.By(validateBlock)),
		),
	)
}

func validateBlock(value interface{}) error {
	block, ok := value.(models.Block)
	if !ok {
		return fmt.Errorf("unexpected block type %T", value)
	}
	return validation.ValidateStruct(&block,
		validation.Field(&block.ID, validation.RuneLength(0, config.MaxBlockIDLength)),
		validation.Field(&block.Content, validation.RuneLength(0, config.MaxBlockContentLength)),
	)
}
