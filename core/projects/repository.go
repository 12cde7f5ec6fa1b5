package projects

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"vibelink/pkg/blobstore"
)

const (
	MetadataObjectName = "vibelink.json"
	ArchiveObjectName  = "project.zip"
	PreviewObjectName  = "preview.png"
	AuthObjectName     = "_auth.json"
)

func MetadataKey(projectID string) string { return fmt.Sprintf("%s/%s", projectID, MetadataObjectName) }
func ArchiveKey(projectID string) string  { return fmt.Sprintf("%s/%s", projectID, ArchiveObjectName) }
func PreviewKey(projectID string) string  { return fmt.Sprintf("%s/%s", projectID, PreviewObjectName) }
func AuthKey(projectID string) string     { return fmt.Sprintf("%s/%s", projectID, AuthObjectName) }

// Repository maps a project ID onto its stored artifacts. It holds no
// state of its own; every call goes straight to the store.
type Repository struct {
	store blobstore.Store
}

func NewRepository(store blobstore.Store) *Repository {
	return &Repository{store: store}
}

// Exists is metadata-keyed: a project exists iff its vibelink.json is
// in the store.
func (slf *Repository) Exists(ctx context.Context, projectID string) (bool, error) {
	return slf.store.Head(ctx, MetadataKey(projectID))
}

func (slf *Repository) ReadMetadata(ctx context.Context, projectID string) (*Metadata, error) {
	data, err := blobstore.ReadAll(ctx, slf.store, MetadataKey(projectID))
	if err != nil {
		if errors.Is(err, blobstore.ErrObjectNotFound) {
			return nil, ErrProjectNotFound
		}

		return nil, err
	}

	metadata := &Metadata{}
	if err := json.Unmarshal(data, metadata); err != nil {
		return nil, err
	}

	return metadata, nil
}

// ReadAuth returns (nil, nil) when the project has no auth record,
// which is what distinguishes a NEW project from an EXISTING one.
func (slf *Repository) ReadAuth(ctx context.Context, projectID string) (*AuthRecord, error) {
	data, err := blobstore.ReadAll(ctx, slf.store, AuthKey(projectID))
	if err != nil {
		if errors.Is(err, blobstore.ErrObjectNotFound) {
			return nil, nil
		}

		return nil, err
	}

	auth := &AuthRecord{}
	if err := json.Unmarshal(data, auth); err != nil {
		return nil, err
	}

	return auth, nil
}

func (slf *Repository) WriteAuth(ctx context.Context, projectID string, auth *AuthRecord) error {
	return slf.putJSON(ctx, AuthKey(projectID), auth)
}

func (slf *Repository) WriteMetadata(ctx context.Context, projectID string, metadata *Metadata) error {
	return slf.putJSON(ctx, MetadataKey(projectID), metadata)
}

func (slf *Repository) WriteArchive(ctx context.Context, projectID string, body io.Reader, size int64) error {
	return slf.store.Put(ctx, ArchiveKey(projectID), body, size, "application/zip")
}

func (slf *Repository) WritePreview(ctx context.Context, projectID string, body io.Reader, size int64) error {
	return slf.store.Put(ctx, PreviewKey(projectID), body, size, "image/png")
}

func (slf *Repository) OpenArchive(ctx context.Context, projectID string) (io.ReadCloser, error) {
	return slf.open(ctx, ArchiveKey(projectID))
}

func (slf *Repository) OpenPreview(ctx context.Context, projectID string) (io.ReadCloser, error) {
	return slf.open(ctx, PreviewKey(projectID))
}

func (slf *Repository) open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := slf.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrObjectNotFound) {
			return nil, ErrProjectNotFound
		}

		return nil, err
	}

	return rc, nil
}

func (slf *Repository) putJSON(ctx context.Context, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return slf.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json")
}
