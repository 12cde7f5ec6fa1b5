package blobstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rogpeppe/go-internal/lockedfile"
)

var ErrNotDirectory = errors.New("not_a_directory")

// LocalFS keeps objects as plain files under a root directory. Reads
// and writes go through lockedfile so two request handlers never
// observe a half-written record.
type LocalFS struct {
	dirPath string
}

func NewLocalFS(dirPath string) (*LocalFS, error) {
	resolvedPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, err
	}

	if err := EnsureDir(resolvedPath); err != nil {
		return nil, err
	}

	return &LocalFS{dirPath: resolvedPath}, nil
}

func EnsureDir(resolvedPath string) error {
	err := os.MkdirAll(resolvedPath, os.ModePerm)
	if err == nil {
		return nil
	}

	if os.IsExist(err) {
		info, err := os.Stat(resolvedPath)
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		return ErrNotDirectory
	}

	return err
}

// resolve maps an object key onto the root directory, rejecting keys
// that would escape it.
func (slf *LocalFS) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}

	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}

	return filepath.Join(slf.dirPath, cleaned), nil
}

func (slf *LocalFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := slf.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := lockedfile.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}

		return nil, err
	}

	return file, nil
}

func (slf *LocalFS) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	path, err := slf.resolve(key)
	if err != nil {
		return err
	}

	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	return lockedfile.Write(path, body, 0o644)
}

func (slf *LocalFS) Head(ctx context.Context, key string) (bool, error) {
	path, err := slf.resolve(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	return !info.IsDir(), nil
}

func (slf *LocalFS) Delete(ctx context.Context, key string) error {
	path, err := slf.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func (slf *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}

	err := filepath.WalkDir(slf.dirPath, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(slf.dirPath, path)
		if err != nil {
			return err
		}

		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}
