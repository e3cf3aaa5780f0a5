package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"law-rag/internal/domain"
)

// sessionStripes bounds the number of in-process session locks. Two requests
// for the same session id always hash to the same stripe, so their turn
// appends are serialized; collisions across ids only cost brief queueing.
const sessionStripes = 64

// SessionLedger owns session state: append-only per-session turn history over
// a TTL store, with appends serialized per session id so history stays
// causally ordered.
type SessionLedger struct {
	store   domain.SessionStore
	ttl     time.Duration
	stripes [sessionStripes]sync.Mutex
	logger  *slog.Logger
}

// NewSessionLedger creates a ledger over store with the given TTL.
func NewSessionLedger(store domain.SessionStore, ttl time.Duration, logger *slog.Logger) *SessionLedger {
	return &SessionLedger{store: store, ttl: ttl, logger: logger}
}

// Resolve returns the session for id, creating a fresh one when id is empty,
// unknown, or expired. An expired or missing session is not an error to the
// caller.
func (l *SessionLedger) Resolve(ctx context.Context, id, country string) (*domain.Session, error) {
	if id != "" {
		session, err := l.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		if session != nil && !session.Expired(time.Now()) {
			return session, nil
		}
		if session == nil {
			l.logger.Info("session_replaced", slog.String("session_id", id), slog.String("reason", "not_found"))
		} else {
			l.logger.Info("session_replaced", slog.String("session_id", id), slog.String("reason", "expired"))
		}
	}
	return l.Create(ctx, country)
}

// Create starts a new session.
func (l *SessionLedger) Create(ctx context.Context, country string) (*domain.Session, error) {
	now := time.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		Country:   country,
		CreatedAt: now,
		ExpiresAt: now.Add(l.ttl),
	}
	if err := l.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	l.logger.Info("session_created", slog.String("session_id", session.ID))
	return session, nil
}

// AppendTurn appends a turn to the session's history. Appends for the same
// session id are mutually exclusive; a caller that cannot acquire the stripe
// queues briefly rather than interleaving turns.
func (l *SessionLedger) AppendTurn(ctx context.Context, id string, turn domain.Turn) error {
	stripe := &l.stripes[stripeFor(id)]
	stripe.Lock()
	defer stripe.Unlock()

	if err := l.store.AppendTurn(ctx, id, turn); err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// Get returns the session for id, or ErrSessionNotFound.
func (l *SessionLedger) Get(ctx context.Context, id string) (*domain.Session, error) {
	session, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil || session.Expired(time.Now()) {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Delete removes the session for id.
func (l *SessionLedger) Delete(ctx context.Context, id string) error {
	return l.store.Delete(ctx, id)
}

// List returns the ids of live sessions.
func (l *SessionLedger) List(ctx context.Context) ([]string, error) {
	return l.store.List(ctx)
}

func stripeFor(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32() % sessionStripes
}
