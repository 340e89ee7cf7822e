package quota

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/config"
)

func newTestService(daily, monthly int) (*Service, *MemoryStore, *time.Time) {
	store := NewMemoryStore()
	svc := NewService(store, config.QuotaConfig{
		DailyLimit:   daily,
		MonthlyLimit: monthly,
		UTCOffset:    3 * time.Hour,
	})
	clock := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, store, &clock
}

func noopAction(ctx context.Context) error { return nil }

func TestService_UsageEmpty(t *testing.T) {
	svc, _, _ := newTestService(5, 20)

	usage, err := svc.Usage(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 0, usage.DayUsed)
	assert.Equal(t, 5, usage.DayRemaining)
	assert.Equal(t, 0, usage.MonthUsed)
	assert.Equal(t, 20, usage.MonthRemaining)
}

func TestService_ConsumeChargesOne(t *testing.T) {
	svc, store, _ := newTestService(5, 20)
	ctx := context.Background()

	usage, err := svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
	require.NoError(t, err)

	assert.Equal(t, 1, usage.DayUsed)
	assert.Equal(t, 4, usage.DayRemaining)
	assert.Equal(t, 1, usage.MonthUsed)
	assert.Equal(t, 19, usage.MonthRemaining)

	count, err := store.CountSince(ctx, "user-1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_BoundaryRejection(t *testing.T) {
	svc, store, _ := newTestService(5, 20)
	ctx := context.Background()

	// With 4 prior records the 5th succeeds.
	for i := 0; i < 5; i++ {
		_, err := svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
		require.NoError(t, err, "attempt %d should be admitted", i+1)
	}

	// The 6th hits used == limit and is rejected.
	_, err := svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
	le, ok := AsLimitError(err)
	require.True(t, ok, "expected a LimitError, got %v", err)
	assert.Equal(t, CodeDailyLimitExceeded, le.Code)
	assert.Equal(t, 5, le.Limit)

	count, err := store.CountSince(ctx, "user-1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 5, count, "rejected attempt must not be logged")
}

func TestService_MonthlyLimit(t *testing.T) {
	svc, _, _ := newTestService(10, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
		require.NoError(t, err)
	}

	_, err := svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
	le, ok := AsLimitError(err)
	require.True(t, ok)
	assert.Equal(t, CodeMonthlyLimitExceeded, le.Code)
	assert.Equal(t, 3, le.Limit)
}

func TestService_ActionFailureIsFree(t *testing.T) {
	svc, store, _ := newTestService(5, 20)
	ctx := context.Background()

	before, err := svc.Usage(ctx, "user-1")
	require.NoError(t, err)

	actionErr := errors.New("downstream exploded")
	_, err = svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, func(ctx context.Context) error {
		return actionErr
	})
	require.ErrorIs(t, err, actionErr)
	_, isLimit := AsLimitError(err)
	assert.False(t, isLimit, "action failure must not masquerade as quota exhaustion")

	after, err := svc.Usage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed action must not be charged")

	count, err := store.CountSince(ctx, "user-1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestService_RejectionCarriesResetTime(t *testing.T) {
	svc, _, clock := newTestService(1, 20)
	ctx := context.Background()

	_, err := svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
	require.NoError(t, err)

	_, err = svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
	le, ok := AsLimitError(err)
	require.True(t, ok)

	want := Windows(*clock, 3*time.Hour).Day.ResetLocal
	assert.Equal(t, want, le.ResetAtLocal)
}

func TestService_IndependentWindows(t *testing.T) {
	svc, _, clock := newTestService(2, 20)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
		require.NoError(t, err)
	}

	_, err := svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
	le, ok := AsLimitError(err)
	require.True(t, ok)
	assert.Equal(t, CodeDailyLimitExceeded, le.Code, "monthly headroom remains, only the day is exhausted")

	// Advance past the day reset: the same user can act again while the
	// monthly count carries over.
	*clock = Windows(*clock, 3*time.Hour).Day.ResetUTC.Add(time.Minute)

	usage, err := svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.DayUsed)
	assert.Equal(t, 3, usage.MonthUsed)
}

func TestService_ConcurrentConsumeNeverOvershoots(t *testing.T) {
	const limit = 5
	const attempts = 25

	svc, store, _ := newTestService(limit, 100)
	ctx := context.Background()

	var successes, rejections atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
			switch {
			case err == nil:
				successes.Add(1)
			default:
				le, ok := AsLimitError(err)
				if assert.True(t, ok, "unexpected error: %v", err) {
					assert.Equal(t, CodeDailyLimitExceeded, le.Code)
				}
				rejections.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), successes.Load())
	assert.Equal(t, int64(attempts-limit), rejections.Load())

	count, err := store.CountSince(ctx, "user-1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, limit, count, "log must hold exactly one record per admitted attempt")
}

func TestService_UsersAreIsolated(t *testing.T) {
	svc, _, _ := newTestService(1, 20)
	ctx := context.Background()

	_, err := svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
	require.NoError(t, err)
	_, err = svc.Consume(ctx, "user-1", Payload{ProvinceID: 34, CountyID: 4}, noopAction)
	_, ok := AsLimitError(err)
	require.True(t, ok)

	// A different user is unaffected.
	_, err = svc.Consume(ctx, "user-2", Payload{ProvinceID: 6, CountyID: 1}, noopAction)
	assert.NoError(t, err)
}

func TestMemoryStore_ReadYourWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)

	err := store.InTx(ctx, "user-1", func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.Append(ctx, &Record{UserID: "user-1", CreatedAtUTC: at}))
		count, err := tx.CountSince(ctx, "user-1", at.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, count, "a unit of work must see its own appends")
		return nil
	})
	require.NoError(t, err)
}
