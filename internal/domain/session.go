package domain

import (
	"context"
	"time"
)

// Turn is one question/answer exchange within a session.
type Turn struct {
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	CitedChunkIDs []string  `json:"cited_chunk_ids,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Session is a TTL-expiring conversational context. Turns are append-only
// and causally ordered; the ledger serializes appends per session id.
type Session struct {
	ID        string    `json:"id"`
	Country   string    `json:"country,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Turns     []Turn    `json:"-"`
}

// Expired reports whether the session's TTL has elapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// RecentTurns returns up to n of the most recent turns, oldest first.
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// SessionStore is the TTL key-value store sessions live in. Get returns
// (nil, nil) for an unknown or expired id. AppendTurn must be atomic per key;
// cross-request ordering is the ledger's job, not the store's.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	AppendTurn(ctx context.Context, id string, turn Turn) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}
