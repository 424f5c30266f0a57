// Package memory holds in-process repositories used when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"reflector/internal/domain"
	llmModels "reflector/internal/domain/models/llm"
	llmRepo "reflector/internal/domain/repositories/llm"
)

// SessionRepository keeps reflect sessions in memory, grouped by thread.
// Sessions are copied on the way in and out.
type SessionRepository struct {
	mu       sync.RWMutex
	byThread map[string][]llmModels.ReflectSession
	ids      map[string]struct{}
}

// NewSessionRepository creates an empty SessionRepository
func NewSessionRepository() llmRepo.SessionRepository {
	return &SessionRepository{
		byThread: make(map[string][]llmModels.ReflectSession),
		ids:      make(map[string]struct{}),
	}
}

// SaveSession stores a copy of session
func (r *SessionRepository) SaveSession(ctx context.Context, session *llmModels.ReflectSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ids[session.ID]; exists {
		return fmt.Errorf("session %s: %w", session.ID, domain.ErrConflict)
	}
	r.ids[session.ID] = struct{}{}
	r.byThread[session.ThreadID] = append(r.byThread[session.ThreadID], cloneSession(*session))
	return nil
}

// ListByThread returns copies of the thread's sessions in insertion order
func (r *SessionRepository) ListByThread(ctx context.Context, threadID string) ([]llmModels.ReflectSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.byThread[threadID]
	out := make([]llmModels.ReflectSession, 0, len(stored))
	for _, s := range stored {
		out = append(out, cloneSession(s))
	}
	return out, nil
}

func cloneSession(s llmModels.ReflectSession) llmModels.ReflectSession {
	s.Messages = llmModels.CloneMessages(s.Messages)
	s.Document = s.Document.Clone()
	if s.Rejections != nil {
		s.Rejections = append([]llmModels.ToolRejection(nil), s.Rejections...)
	}
	return s
}
