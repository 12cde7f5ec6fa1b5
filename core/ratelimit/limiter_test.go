package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibelink/pkg/blobstore"
)

const mib = int64(1024 * 1024)

type testClock struct {
	current time.Time
}

func (tc *testClock) Now() time.Time {
	return tc.current
}

func (tc *testClock) Advance(d time.Duration) {
	tc.current = tc.current.Add(d)
}

func newTestLimiter(t *testing.T, opts ...LimiterOpts) (*Limiter, *blobstore.Memory, *testClock) {
	t.Helper()

	store := blobstore.NewMemory()
	clock := &testClock{current: time.Unix(1_700_000_000, 0)}

	opts = append([]LimiterOpts{WithClock(clock.Now)}, opts...)

	return NewLimiter(NewBlobRecordStore(store), opts...), store, clock
}

func Test_LimiterCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh client gets the full quota", func(t *testing.T) {
		limiter, _, _ := newTestLimiter(t)

		decision := limiter.Check(ctx, "client", 60*mib)

		assert.True(t, decision.Allowed)
		assert.Equal(t, DefaultQuotaBytes, decision.RemainingBytes)
	})

	t.Run("second upload over quota is denied with remaining bytes", func(t *testing.T) {
		limiter, _, _ := newTestLimiter(t)

		limiter.RecordUpload(ctx, "client", 60*mib)

		decision := limiter.Check(ctx, "client", 50*mib)

		assert.False(t, decision.Allowed)
		assert.Equal(t, 40*mib, decision.RemainingBytes)
		assert.Equal(t, 60, decision.RetryAfterMinutes)
	})

	t.Run("upload fitting the remainder is allowed", func(t *testing.T) {
		limiter, _, _ := newTestLimiter(t)

		limiter.RecordUpload(ctx, "client", 60*mib)

		decision := limiter.Check(ctx, "client", 40*mib)

		assert.True(t, decision.Allowed)
		assert.Equal(t, 40*mib, decision.RemainingBytes)
	})

	t.Run("entries age out of the sliding window", func(t *testing.T) {
		limiter, _, clock := newTestLimiter(t)

		limiter.RecordUpload(ctx, "client", 60*mib)

		clock.Advance(time.Hour + time.Second)

		decision := limiter.Check(ctx, "client", 50*mib)

		assert.True(t, decision.Allowed)
		assert.Equal(t, DefaultQuotaBytes, decision.RemainingBytes)
	})

	t.Run("retry hint is the ceiling of the oldest entry's exit", func(t *testing.T) {
		limiter, _, clock := newTestLimiter(t)

		limiter.RecordUpload(ctx, "client", 90*mib)

		clock.Advance(30*time.Minute + 30*time.Second)

		decision := limiter.Check(ctx, "client", 20*mib)

		require.False(t, decision.Allowed)
		assert.Equal(t, 30, decision.RetryAfterMinutes)
	})

	t.Run("fails open on store error", func(t *testing.T) {
		limiter, store, _ := newTestLimiter(t)
		store.GetErr = errors.New("store down")

		decision := limiter.Check(ctx, "client", 90*mib)

		assert.True(t, decision.Allowed)
		assert.Equal(t, DefaultQuotaBytes, decision.RemainingBytes)
	})

	t.Run("fails closed when configured", func(t *testing.T) {
		limiter, store, _ := newTestLimiter(t, WithFailClosed())
		store.GetErr = errors.New("store down")

		decision := limiter.Check(ctx, "client", mib)

		assert.False(t, decision.Allowed)
		assert.Equal(t, 60, decision.RetryAfterMinutes)
	})

	t.Run("quotas are per client key", func(t *testing.T) {
		limiter, _, _ := newTestLimiter(t)

		limiter.RecordUpload(ctx, "first", 90*mib)

		decision := limiter.Check(ctx, "second", 90*mib)

		assert.True(t, decision.Allowed)
	})
}

func Test_LimiterRecordUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("prunes expired entries on write", func(t *testing.T) {
		limiter, _, clock := newTestLimiter(t)
		records := limiter.records

		limiter.RecordUpload(ctx, "client", 10*mib)
		limiter.RecordUpload(ctx, "client", 20*mib)

		clock.Advance(2 * time.Hour)

		limiter.RecordUpload(ctx, "client", 30*mib)

		record, err := records.Fetch(ctx, "client")
		require.NoError(t, err)
		require.NotNil(t, record)

		require.Len(t, record.Uploads, 1)
		assert.Equal(t, 30*mib, record.Uploads[0].Bytes)
	})

	t.Run("write failure is dropped silently", func(t *testing.T) {
		limiter, store, _ := newTestLimiter(t)
		store.PutErr = errors.New("store down")

		limiter.RecordUpload(ctx, "client", 10*mib)

		store.PutErr = nil

		decision := limiter.Check(ctx, "client", DefaultQuotaBytes)
		assert.True(t, decision.Allowed)
	})
}

func Test_LimiterPrune(t *testing.T) {
	limiter, _, clock := newTestLimiter(t)

	now := clock.Now()

	record := &Record{Uploads: []Entry{
		{Timestamp: now.Add(-2 * time.Hour).UnixMilli(), Bytes: mib},
		{Timestamp: now.Add(-10 * time.Minute).UnixMilli(), Bytes: 2 * mib},
	}}

	kept, empty := limiter.Prune(record, now)

	assert.False(t, empty)
	require.Len(t, kept.Uploads, 1)
	assert.Equal(t, 2*mib, kept.Uploads[0].Bytes)

	kept, empty = limiter.Prune(record, now.Add(2*time.Hour))

	assert.True(t, empty)
	assert.Empty(t, kept.Uploads)
}
