package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nexconsult/processo-api/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(clock *fakeClock) *SessionStore {
	return NewSessionStore(nil, testSessionConfig(), newTestLogger(), clock.Now)
}

func mustCaseNumber(t *testing.T, raw string) utils.CaseNumber {
	t.Helper()
	n, err := utils.NormalizeCaseNumber(raw)
	require.NoError(t, err)
	return n
}

func TestSessionStore_GetBeforeTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestSessionStore(clock)
	cookies := []Cookie{{Name: "JSESSIONID", Value: "abc"}}

	created, err := store.Create(ctx, mustCaseNumber(t, "00026885420248160136"), "u1", cookies)
	require.NoError(t, err)
	assert.Len(t, created.ID, 64)
	assert.Equal(t, "memory", store.Backend())

	clock.Advance(15 * time.Minute)
	got, err := store.Get(ctx, created.ID, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, "0002688-54.2024.8.16.0136", got.CaseNumber.String())
	assert.Equal(t, cookies, got.Cookies)
	assert.Equal(t, "u1", got.UserID)
}

func TestSessionStore_ExpiredLookupDeletes(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestSessionStore(clock)

	created, err := store.Create(ctx, mustCaseNumber(t, "00026885420248160136"), "u1", nil)
	require.NoError(t, err)

	clock.Advance(15*time.Minute + time.Second)
	_, err = store.Get(ctx, created.ID, clock.Now())
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = store.Get(ctx, created.ID, clock.Now())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len(ctx))
}

func TestSessionStore_ConsumeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestSessionStore(clock)

	created, err := store.Create(ctx, mustCaseNumber(t, "00026885420248160136"), "u1", nil)
	require.NoError(t, err)

	require.NoError(t, store.Consume(ctx, created.ID))
	require.NoError(t, store.Consume(ctx, created.ID))
	require.NoError(t, store.Consume(ctx, "never-existed"))

	_, err = store.Get(ctx, created.ID, clock.Now())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_TakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestSessionStore(clock)

	created, err := store.Create(ctx, mustCaseNumber(t, "00026885420248160136"), "u1", nil)
	require.NoError(t, err)

	var taken atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Take(ctx, created.ID, clock.Now()); err == nil {
				taken.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), taken.Load())
	_, err = store.Get(ctx, created.ID, clock.Now())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_TakeExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestSessionStore(clock)

	created, err := store.Create(ctx, mustCaseNumber(t, "00026885420248160136"), "u1", nil)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = store.Take(ctx, created.ID, clock.Now())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 0, store.Len(ctx))
}

func TestSessionStore_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestSessionStore(clock)
	number := mustCaseNumber(t, "00026885420248160136")

	_, err := store.Create(ctx, number, "u1", nil)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	fresh, err := store.Create(ctx, number, "u2", nil)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	assert.Equal(t, 1, store.Sweep(clock.Now()))
	assert.Equal(t, 1, store.Len(ctx))

	_, err = store.Get(ctx, fresh.ID, clock.Now())
	assert.NoError(t, err)
}

func TestSessionStore_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestSessionStore(newFakeClock())
	number := mustCaseNumber(t, "00026885420248160136")

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := store.Create(ctx, number, "u1", nil)
		require.NoError(t, err)
		assert.False(t, seen[s.ID])
		seen[s.ID] = true
	}
}
