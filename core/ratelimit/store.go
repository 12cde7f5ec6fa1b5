package ratelimit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"vibelink/pkg/blobstore"
)

// Entry is one recorded upload. Timestamp is milliseconds since epoch,
// matching the stored record format.
type Entry struct {
	Timestamp int64 `json:"timestamp"`
	Bytes     int64 `json:"bytes"`
}

type Record struct {
	Uploads []Entry `json:"uploads"`
}

// RecordStore persists one usage record per client key. Fetch returns
// (nil, nil) for clients that have never uploaded.
type RecordStore interface {
	Fetch(ctx context.Context, clientKey string) (*Record, error)
	Save(ctx context.Context, clientKey string, record *Record) error
}

const blobKeyPrefix = "_ratelimit/"

// BlobRecordStore keeps records in the same object store as the
// projects, namespaced under _ratelimit/.
type BlobRecordStore struct {
	store blobstore.Store
}

func NewBlobRecordStore(store blobstore.Store) *BlobRecordStore {
	return &BlobRecordStore{store: store}
}

func BlobRecordKey(clientKey string) string {
	return fmt.Sprintf("%s%s.json", blobKeyPrefix, clientKey)
}

func (slf *BlobRecordStore) Fetch(ctx context.Context, clientKey string) (*Record, error) {
	data, err := blobstore.ReadAll(ctx, slf.store, BlobRecordKey(clientKey))
	if err != nil {
		if errors.Is(err, blobstore.ErrObjectNotFound) {
			return nil, nil
		}

		return nil, err
	}

	record := &Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, err
	}

	return record, nil
}

func (slf *BlobRecordStore) Save(ctx context.Context, clientKey string, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return slf.store.Put(
		ctx,
		BlobRecordKey(clientKey),
		bytes.NewReader(data),
		int64(len(data)),
		"application/json",
	)
}
