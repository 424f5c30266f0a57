package llm

import (
	"context"

	"reflector/internal/domain/models/llm"
)

// SessionRepository stores the conversation logs of reflect turns
type SessionRepository interface {
	// SaveSession persists a completed turn. ID and CreatedAt are set when empty.
	SaveSession(ctx context.Context, session *llm.ReflectSession) error

	// ListByThread returns the sessions of a thread, oldest first.
	// Unknown threads return an empty slice.
	ListByThread(ctx context.Context, threadID string) ([]llm.ReflectSession, error)
}
