package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibelink/core/ratelimit"
	"vibelink/pkg/blobstore"
)

func Test_Sweep(t *testing.T) {
	ctx := context.Background()

	store := blobstore.NewMemory()
	records := ratelimit.NewBlobRecordStore(store)

	now := time.Now().UnixMilli()
	hourMs := time.Hour.Milliseconds()

	// Fully expired record, mixed record, fully live record.
	require.NoError(t, records.Save(ctx, "stale", &ratelimit.Record{Uploads: []ratelimit.Entry{
		{Timestamp: now - 3*hourMs, Bytes: 100},
	}}))
	require.NoError(t, records.Save(ctx, "mixed", &ratelimit.Record{Uploads: []ratelimit.Entry{
		{Timestamp: now - 2*hourMs, Bytes: 100},
		{Timestamp: now - hourMs/2, Bytes: 200},
	}}))
	require.NoError(t, records.Save(ctx, "live", &ratelimit.Record{Uploads: []ratelimit.Entry{
		{Timestamp: now - hourMs/4, Bytes: 300},
	}}))

	require.NoError(t, Sweep(ctx, store))

	stale, err := records.Fetch(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, stale)

	mixed, err := records.Fetch(ctx, "mixed")
	require.NoError(t, err)
	require.NotNil(t, mixed)
	require.Len(t, mixed.Uploads, 1)
	assert.Equal(t, int64(200), mixed.Uploads[0].Bytes)

	live, err := records.Fetch(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Len(t, live.Uploads, 1)
}
