package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit::"

func NewRedisConnection(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// RedisRecordStore is an alternative record backend for deployments
// that already run redis. Records expire with the window, so stale
// clients clean themselves up without a sweeper.
type RedisRecordStore struct {
	conn   *redis.Client
	expiry time.Duration
}

func NewRedisRecordStore(conn *redis.Client, expiry time.Duration) *RedisRecordStore {
	return &RedisRecordStore{conn: conn, expiry: expiry}
}

func redisRecordKey(clientKey string) string {
	return fmt.Sprintf("%s%s", redisKeyPrefix, clientKey)
}

func (slf *RedisRecordStore) Fetch(ctx context.Context, clientKey string) (*Record, error) {
	data, err := slf.conn.Get(ctx, redisRecordKey(clientKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
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

func (slf *RedisRecordStore) Save(ctx context.Context, clientKey string, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return slf.conn.Set(ctx, redisRecordKey(clientKey), data, slf.expiry).Err()
}
