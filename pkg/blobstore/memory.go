package blobstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// Memory is the in-memory Store used by tests. The error fields let a
// test fail individual operations to exercise the fail-open and
// fail-silent policies.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte

	GetErr  error
	PutErr  error
	HeadErr error
}

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

func (slf *Memory) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if slf.GetErr != nil {
		return nil, slf.GetErr
	}

	slf.mu.RLock()
	defer slf.mu.RUnlock()

	data, ok := slf.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (slf *Memory) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if slf.PutErr != nil {
		return slf.PutErr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	slf.mu.Lock()
	defer slf.mu.Unlock()

	slf.objects[key] = data

	return nil
}

func (slf *Memory) Head(ctx context.Context, key string) (bool, error) {
	if slf.HeadErr != nil {
		return false, slf.HeadErr
	}

	slf.mu.RLock()
	defer slf.mu.RUnlock()

	_, ok := slf.objects[key]

	return ok, nil
}

func (slf *Memory) Delete(ctx context.Context, key string) error {
	slf.mu.Lock()
	defer slf.mu.Unlock()

	delete(slf.objects, key)

	return nil
}

func (slf *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	slf.mu.RLock()
	defer slf.mu.RUnlock()

	keys := []string{}

	for key := range slf.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys, nil
}

// Len reports the number of stored objects.
func (slf *Memory) Len() int {
	slf.mu.RLock()
	defer slf.mu.RUnlock()

	return len(slf.objects)
}
