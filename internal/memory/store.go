package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nexusflow/taxassist/internal/db"
)

// Store persists per-user conversation history. Each user owns exactly one
// thread, identified deterministically as "user_<userID>"; it is created
// implicitly on first append and never expires.
type Store struct {
	db        *db.DB
	hardClear bool
}

// NewStore creates a session memory store. When hardClear is false, Clear is
// a logged no-op, matching the historical behavior of this service; when
// true it truncates the thread's history.
func NewStore(database *db.DB, hardClear bool) *Store {
	return &Store{db: database, hardClear: hardClear}
}

// ThreadID returns the deterministic thread identifier for a user.
func ThreadID(userID string) string {
	return "user_" + userID
}

// Append adds a message to the user's thread, creating the thread if needed.
func (s *Store) Append(ctx context.Context, userID, role, content string) (*Message, error) {
	threadID := ThreadID(userID)
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO threads (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		threadID, userID, now, now,
	); err != nil {
		return nil, fmt.Errorf("upserting thread: %w", err)
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE thread_id = ?`, threadID,
	).Scan(&seq); err != nil {
		return nil, fmt.Errorf("computing sequence: %w", err)
	}

	msg := Message{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Seq:       seq,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, thread_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ThreadID, msg.Seq, msg.Role, msg.Content, msg.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &msg, nil
}

// History returns all messages in the user's thread, oldest first. A user
// with no thread yet gets an empty history, not an error.
func (s *Store) History(ctx context.Context, userID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, seq, role, content, created_at
		 FROM messages WHERE thread_id = ? ORDER BY seq ASC`,
		ThreadID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Seq, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Thread returns the user's thread record, or nil if none exists yet.
func (s *Store) Thread(ctx context.Context, userID string) (*Thread, error) {
	var t Thread
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM threads WHERE id = ?`,
		ThreadID(userID),
	).Scan(&t.ID, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting thread: %w", err)
	}
	return &t, nil
}

// Clear removes the user's conversation history when hard clearing is
// enabled; otherwise it only logs, preserving the thread.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if !s.hardClear {
		log.Printf("memory: clear requested for user %s (no-op, hard_clear disabled)", userID)
		return nil
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE thread_id = ?`, ThreadID(userID),
	); err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}
	return nil
}
