package llm

import (
	"time"

	"reflector/internal/domain/models"
)

// ReflectSession is the persisted conversation log of one reflect turn.
type ReflectSession struct {
	ID         string          `json:"id" db:"id"`
	ThreadID   string          `json:"thread_id" db:"thread_id"`
	UserID     string          `json:"user_id,omitempty" db:"user_id"` // empty when auth is disabled
	Prompt     string          `json:"prompt" db:"prompt"`
	Provider   string          `json:"provider" db:"provider"`
	Model      string          `json:"model" db:"model"`
	Messages   []Message       `json:"messages" db:"messages"`            // JSONB
	Document   models.Document `json:"document" db:"document"`            // JSONB, resolved snapshot
	Rejections []ToolRejection `json:"rejections,omitempty" db:"rejections"` // JSONB
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// ToolRejection records a tool call that was dropped during resolution.
type ToolRejection struct {
	CallID   string `json:"call_id"`
	ToolName string `json:"tool_name"`
	Reason   string `json:"reason"`
}
