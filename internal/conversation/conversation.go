// Package conversation persists the append-only message log. Callers
// that run without PostgreSQL simply never construct a Store; the chat
// exchange itself is authoritative in the caller's own state until the
// next reload.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Message roles. The check constraint on chat_messages enforces the same
// two values.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message in a session.
type Message struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DB is the database surface Store needs. *pgxpool.Pool satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads and writes the message log. Messages are never mutated
// after insertion.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a Store over db.
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// AppendMessage inserts a message into the session log and returns it.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string) (Message, error) {
	msg := Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	row := s.db.QueryRow(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		msg.ID, msg.SessionID, msg.Role, msg.Content)
	if err := row.Scan(&msg.CreatedAt); err != nil {
		return Message{}, fmt.Errorf("append message to %s: %w", sessionID, err)
	}
	return msg, nil
}

// ListMessages returns the session's messages oldest first. A positive
// limit caps the result to the most recent messages, still oldest first,
// so a capped history replay keeps the latest context.
func (s *Store) ListMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	query := `SELECT id, session_id, role, content, created_at
	          FROM chat_messages
	          WHERE session_id = $1
	          ORDER BY created_at ASC`
	args := []any{sessionID}
	if limit > 0 {
		query = `SELECT id, session_id, role, content, created_at
		         FROM chat_messages
		         WHERE session_id = $1
		         ORDER BY created_at DESC
		         LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	if limit > 0 {
		slices.Reverse(messages)
	}
	return messages, nil
}
