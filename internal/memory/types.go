package memory

import "time"

// Message is a single entry in a conversation thread.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Seq       int       `json:"seq"`
	Role      string    `json:"role"` // "user", "assistant", "system", "tool"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread is a persistent conversation keyed by user identity.
type Thread struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
