package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// 100 MiB per client key per trailing hour.
	DefaultQuotaBytes = int64(100 * 1024 * 1024)
	DefaultWindow     = time.Hour
)

// Decision is the outcome of a quota check. RetryAfterMinutes is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed           bool
	RetryAfterMinutes int
	RemainingBytes    int64
}

// QuotaExceededError carries the retry hints surfaced to the caller on
// a 429.
type QuotaExceededError struct {
	QuotaBytes        int64
	RemainingBytes    int64
	RetryAfterMinutes int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf(
		"Rate limit exceeded. You can upload %dMB per hour. You have %.1fMB remaining. Try again in %d minutes.",
		e.QuotaBytes/(1024*1024),
		float64(e.RemainingBytes)/(1024*1024),
		e.RetryAfterMinutes,
	)
}

// Limiter enforces a sliding-window byte quota per client key. State
// lives in a RecordStore; the limiter itself is stateless, so two
// concurrent uploads from one client can both pass a check against the
// same snapshot and overshoot the quota by at most one request's size.
type Limiter struct {
	records    RecordStore
	quota      int64
	window     time.Duration
	failClosed bool
	now        func() time.Time
}

type LimiterOpts func(*Limiter)

func WithQuota(quota int64) LimiterOpts {
	return func(l *Limiter) {
		l.quota = quota
	}
}

func WithWindow(window time.Duration) LimiterOpts {
	return func(l *Limiter) {
		l.window = window
	}
}

// WithFailClosed denies uploads when the record store is unreachable.
// The default is fail open, preferring availability of the upload path
// over strict enforcement.
func WithFailClosed() LimiterOpts {
	return func(l *Limiter) {
		l.failClosed = true
	}
}

func WithClock(now func() time.Time) LimiterOpts {
	return func(l *Limiter) {
		l.now = now
	}
}

func NewLimiter(records RecordStore, opts ...LimiterOpts) *Limiter {
	limiter := &Limiter{
		records: records,
		quota:   DefaultQuotaBytes,
		window:  DefaultWindow,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(limiter)
	}

	return limiter
}

func (slf *Limiter) Quota() int64 {
	return slf.quota
}

// Check reads the client's record and decides whether an upload of
// uploadSize fits in the remaining window quota. Entries older than
// the window are ignored; they are only pruned on the next write.
func (slf *Limiter) Check(ctx context.Context, clientKey string, uploadSize int64) Decision {
	now := slf.now().UnixMilli()
	windowStart := now - slf.window.Milliseconds()

	record, err := slf.records.Fetch(ctx, clientKey)
	if err != nil {
		if slf.failClosed {
			log.Warn().Err(err).Str("client", clientKey).
				Msg("rate limit check failed, failing closed")

			return Decision{
				Allowed:           false,
				RetryAfterMinutes: int(slf.window / time.Minute),
			}
		}

		log.Warn().Err(err).Str("client", clientKey).
			Msg("rate limit check failed, failing open")

		return Decision{Allowed: true, RemainingBytes: slf.quota}
	}

	if record == nil {
		return Decision{Allowed: true, RemainingBytes: slf.quota}
	}

	var totalBytes int64

	oldest := int64(-1)

	for _, entry := range record.Uploads {
		if entry.Timestamp <= windowStart {
			continue
		}

		totalBytes += entry.Bytes

		if oldest < 0 || entry.Timestamp < oldest {
			oldest = entry.Timestamp
		}
	}

	remaining := slf.quota - totalBytes

	if totalBytes+uploadSize > slf.quota {
		retryAfterMs := oldest + slf.window.Milliseconds() - now
		retryAfterMinutes := int((retryAfterMs + 59_999) / 60_000)

		if remaining < 0 {
			remaining = 0
		}

		return Decision{
			Allowed:           false,
			RetryAfterMinutes: retryAfterMinutes,
			RemainingBytes:    remaining,
		}
	}

	return Decision{Allowed: true, RemainingBytes: remaining}
}

// RecordUpload appends a usage entry after a successful persist,
// pruning expired entries on the way. Failures are dropped: recording
// is not atomic with Check, and losing one entry under-counts usage
// rather than blocking the upload.
func (slf *Limiter) RecordUpload(ctx context.Context, clientKey string, uploadSize int64) {
	now := slf.now().UnixMilli()
	windowStart := now - slf.window.Milliseconds()

	uploads := []Entry{}

	record, err := slf.records.Fetch(ctx, clientKey)
	if err != nil {
		log.Warn().Err(err).Str("client", clientKey).
			Msg("rate limit record read failed, starting fresh")
	} else if record != nil {
		for _, entry := range record.Uploads {
			if entry.Timestamp > windowStart {
				uploads = append(uploads, entry)
			}
		}
	}

	uploads = append(uploads, Entry{Timestamp: now, Bytes: uploadSize})

	if err := slf.records.Save(ctx, clientKey, &Record{Uploads: uploads}); err != nil {
		log.Warn().Err(err).Str("client", clientKey).
			Msg("rate limit record write failed, usage not counted")
	}
}

// Prune rewrites a record without its expired entries, deleting it via
// the returned flag when nothing is left. Used by the sweeper, not the
// request path.
func (slf *Limiter) Prune(record *Record, now time.Time) (kept *Record, empty bool) {
	windowStart := now.UnixMilli() - slf.window.Milliseconds()

	uploads := []Entry{}

	for _, entry := range record.Uploads {
		if entry.Timestamp > windowStart {
			uploads = append(uploads, entry)
		}
	}

	return &Record{Uploads: uploads}, len(uploads) == 0
}
