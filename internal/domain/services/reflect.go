package services

import (
	"context"

	"reflector/internal/domain/models"
	"reflector/internal/domain/models/llm"
)

// ReflectService runs reflect turns over editor documents
type ReflectService interface {
	// ProcessReflectionRequest runs one turn and returns the revised document.
	// Duplicate block ids fail with *domain.InvalidDocumentError before the model is called.
	ProcessReflectionRequest(ctx context.Context, req *ReflectRequest) (*ReflectResponse, error)

	// ListThreadSessions returns the persisted conversation logs of a thread, oldest first
	ListThreadSessions(ctx context.Context, threadID string) ([]llm.ReflectSession, error)
}

// ReflectRequest represents a reflect request
type ReflectRequest struct {
	ThreadID string          `json:"thread_id,omitempty"` // Optional; a fresh id is generated when empty
	Document models.Document `json:"document"`
	Prompt   string          `json:"prompt"`
	UserID   string          `json:"-"` // Set from the auth context, never from the body
}

// ReflectResponse carries the revised document
type ReflectResponse struct {
	Document models.Document `json:"document"`
}
