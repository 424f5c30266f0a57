package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"reflector/internal/domain"
	llmModels "reflector/internal/domain/models/llm"
	llmRepo "reflector/internal/domain/repositories/llm"
	"reflector/internal/repository/postgres"
)

// PostgresSessionRepository implements the SessionRepository interface using PostgreSQL.
// Messages, document and rejections are stored as JSONB.
type PostgresSessionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewSessionRepository creates a new PostgresSessionRepository
func NewSessionRepository(config *postgres.RepositoryConfig) llmRepo.SessionRepository {
	return &PostgresSessionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// SaveSession inserts a completed reflect turn
func (r *PostgresSessionRepository) SaveSession(ctx context.Context, session *llmModels.ReflectSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	messages, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	document, err := json.Marshal(session.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	rejections := session.Rejections
	if rejections == nil {
		rejections = []llmModels.ToolRejection{}
	}
	rejected, err := json.Marshal(rejections)
	if err != nil {
		return fmt.Errorf("marshal rejections: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, thread_id, user_id, prompt, provider, model, messages, document, rejections, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.ReflectSessions)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		session.ID,
		session.ThreadID,
		session.UserID,
		session.Prompt,
		session.Provider,
		session.Model,
		messages,
		document,
		rejected,
		session.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("session %s: %w", session.ID, domain.ErrConflict)
		}
		return fmt.Errorf("save session: %w", err)
	}

	r.logger.Debug("reflect session saved",
		"session_id", session.ID,
		"thread_id", session.ThreadID,
		"messages", len(session.Messages),
	)
	return nil
}

// ListByThread returns all sessions of a thread, oldest first
func (r *PostgresSessionRepository) ListByThread(ctx context.Context, threadID string) ([]llmModels.ReflectSession, error) {
	query := fmt.Sprintf(`
		SELECT id, thread_id, user_id, prompt, provider, model, messages, document, rejections, created_at
		FROM %s
		WHERE thread_id = $1
		ORDER BY created_at ASC, id ASC
	`, r.tables.ReflectSessions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []llmModels.ReflectSession{}
	for rows.Next() {
		var s llmModels.ReflectSession
		var messages, document, rejections []byte
		if err := rows.Scan(
			&s.ID,
			&s.ThreadID,
			&s.UserID,
			&s.Prompt,
			&s.Provider,
			&s.Model,
			&messages,
			&document,
			&rejections,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if err := decodeSessionJSON(&s, messages, document, rejections); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", s.ID, err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func decodeSessionJSON(s *llmModels.ReflectSession, messages, document, rejections []byte) error {
	if err := json.Unmarshal(messages, &s.Messages); err != nil {
		return fmt.Errorf("messages: %w", err)
	}
	if err := json.Unmarshal(document, &s.Document); err != nil {
		return fmt.Errorf("document: %w", err)
	}
	if len(rejections) > 0 {
		if err := json.Unmarshal(rejections, &s.Rejections); err != nil {
			return fmt.Errorf("rejections: %w", err)
		}
	}
	if len(s.Rejections) == 0 {
		s.Rejections = nil
	}
	return nil
}
