package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"law-rag/internal/domain"
	"law-rag/internal/usecase"
)

func TestLedger_ResolveCreatesWhenEmpty(t *testing.T) {
	store := newMemorySessionStore()
	ledger := usecase.NewSessionLedger(store, time.Hour, testLogger())

	session, err := ledger.Resolve(context.Background(), "", "jordan")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "jordan", session.Country)
	assert.True(t, session.ExpiresAt.After(time.Now()))
}

func TestLedger_ResolveReturnsExisting(t *testing.T) {
	store := newMemorySessionStore()
	ledger := usecase.NewSessionLedger(store, time.Hour, testLogger())

	created, err := ledger.Create(context.Background(), "jordan")
	require.NoError(t, err)

	resolved, err := ledger.Resolve(context.Background(), created.ID, "jordan")
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)
}

func TestLedger_ResolveReplacesUnknownAndExpired(t *testing.T) {
	store := newMemorySessionStore()
	ledger := usecase.NewSessionLedger(store, time.Hour, testLogger())

	replaced, err := ledger.Resolve(context.Background(), "unknown-id", "jordan")
	require.NoError(t, err)
	assert.NotEqual(t, "unknown-id", replaced.ID)

	expired := &domain.Session{
		ID:        "expired-id",
		Country:   "jordan",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Create(context.Background(), expired))

	fresh, err := ledger.Resolve(context.Background(), "expired-id", "jordan")
	require.NoError(t, err)
	assert.NotEqual(t, "expired-id", fresh.ID)
}

func TestLedger_GetExpiredIsNotFound(t *testing.T) {
	store := newMemorySessionStore()
	ledger := usecase.NewSessionLedger(store, time.Hour, testLogger())

	expired := &domain.Session{
		ID:        "expired-id",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, store.Create(context.Background(), expired))

	_, err := ledger.Get(context.Background(), "expired-id")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = ledger.Get(context.Background(), "never-existed")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLedger_ConcurrentAppendsAllRecorded(t *testing.T) {
	store := newMemorySessionStore()
	ledger := usecase.NewSessionLedger(store, time.Hour, testLogger())

	session, err := ledger.Create(context.Background(), "jordan")
	require.NoError(t, err)

	const appends = 50
	var wg sync.WaitGroup
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			turn := domain.Turn{
				Question:  fmt.Sprintf("سؤال %d", i),
				Answer:    "إجابة",
				CreatedAt: time.Now(),
			}
			assert.NoError(t, ledger.AppendTurn(context.Background(), session.ID, turn))
		}(i)
	}
	wg.Wait()

	loaded, err := ledger.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Turns, appends)
}

func TestLedger_DeleteAndList(t *testing.T) {
	store := newMemorySessionStore()
	ledger := usecase.NewSessionLedger(store, time.Hour, testLogger())

	a, err := ledger.Create(context.Background(), "jordan")
	require.NoError(t, err)
	b, err := ledger.Create(context.Background(), "egypt")
	require.NoError(t, err)

	ids, err := ledger.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	require.NoError(t, ledger.Delete(context.Background(), a.ID))
	ids, err = ledger.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)
}
