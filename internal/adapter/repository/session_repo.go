package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"law-rag/internal/domain"
)

const sessionKeyPrefix = "session:"

// redisSessionStore implements domain.SessionStore on Redis. Each session is
// two keys sharing one TTL: a JSON metadata value and a list of JSON turns.
// Redis lists make appends atomic without read-modify-write races.
type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a session store over client with the given TTL.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) domain.SessionStore {
	return &redisSessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string      { return sessionKeyPrefix + id }
func sessionTurnsKey(id string) string { return sessionKeyPrefix + id + ":turns" }

type sessionMeta struct {
	ID        string    `json:"id"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *redisSessionStore) Create(ctx context.Context, session *domain.Session) error {
	meta := sessionMeta{
		ID:        session.ID,
		Country:   session.Country,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var meta sessionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	rawTurns, err := s.client.LRange(ctx, sessionTurnsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session turns: %w", err)
	}
	turns := make([]domain.Turn, 0, len(rawTurns))
	for _, raw := range rawTurns {
		var turn domain.Turn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}

	return &domain.Session{
		ID:        meta.ID,
		Country:   meta.Country,
		CreatedAt: meta.CreatedAt,
		ExpiresAt: meta.ExpiresAt,
		Turns:     turns,
	}, nil
}

// AppendTurn pushes the turn and refreshes both keys' TTLs in one pipeline,
// so a session's turns never outlive its metadata.
func (s *redisSessionStore) AppendTurn(ctx context.Context, id string, turn domain.Turn) error {
	exists, err := s.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return domain.ErrSessionNotFound
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, sessionTurnsKey(id), data)
	pipe.Expire(ctx, sessionKey(id), s.ttl)
	pipe.Expire(ctx, sessionTurnsKey(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id), sessionTurnsKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) List(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan sessions: %w", err)
		}
		for _, key := range keys {
			if strings.HasSuffix(key, ":turns") {
				continue
			}
			ids = append(ids, strings.TrimPrefix(key, sessionKeyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

var _ domain.SessionStore = (*redisSessionStore)(nil)
