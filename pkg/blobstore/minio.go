package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore backs the service with any S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	store := &MinioStore{client: client, bucket: cfg.Bucket}

	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func (slf *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := slf.client.BucketExists(ctx, slf.bucket)
	if err != nil {
		return err
	}

	if !exists {
		if err := slf.client.MakeBucket(ctx, slf.bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}

		log.Info().Str("bucket", slf.bucket).Msg("created bucket")
	}

	return nil
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
	}

	return false
}

func (slf *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := slf.client.GetObject(ctx, slf.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}

	// GetObject is lazy, Stat forces the missing-key error out now.
	if _, err := obj.Stat(); err != nil {
		obj.Close()

		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound
		}

		return nil, err
	}

	return obj, nil
}

func (slf *MinioStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := slf.client.PutObject(ctx, slf.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})

	return err
}

func (slf *MinioStore) Head(ctx context.Context, key string) (bool, error) {
	_, err := slf.client.StatObject(ctx, slf.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (slf *MinioStore) Delete(ctx context.Context, key string) error {
	return slf.client.RemoveObject(ctx, slf.bucket, key, minio.RemoveObjectOptions{})
}

func (slf *MinioStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}

	objectCh := slf.client.ListObjects(ctx, slf.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}

		keys = append(keys, object.Key)
	}

	return keys, nil
}
