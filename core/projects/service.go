package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"vibelink/core/identity"
	"vibelink/core/ratelimit"
)

const (
	// Per-project archive cap.
	DefaultMaxArchiveBytes = int64(100 * 1024 * 1024)

	// Attempts at minting a project ID that is not already taken.
	mintAttempts = 3
)

// UploadRequest carries one decoded multipart upload. ProjectID and
// AuthorToken are only set on update attempts.
type UploadRequest struct {
	MetadataJSON []byte

	Archive     io.Reader
	ArchiveSize int64

	Preview     io.Reader
	PreviewSize int64

	ProjectID   string
	AuthorToken string

	ClientKey string
}

// UploadResult mirrors the upload response body. AuthorToken is set
// only on first creation and is never retrievable again.
type UploadResult struct {
	URL         string
	ProjectID   string
	IsUpdate    bool
	AuthorToken string
	Message     string
}

const tokenWarning = "IMPORTANT: Save your author token! You need it to update this project. It cannot be recovered."

// UploadService composes identity, rate limiting and the repository
// into the create-or-update operation behind POST /upload.
type UploadService struct {
	repo            *Repository
	limiter         *ratelimit.Limiter
	baseURL         string
	maxArchiveBytes int64
	now             func() time.Time
}

type UploadServiceOpts func(*UploadService)

func WithMaxArchiveBytes(limit int64) UploadServiceOpts {
	return func(svc *UploadService) {
		svc.maxArchiveBytes = limit
	}
}

func WithServiceClock(now func() time.Time) UploadServiceOpts {
	return func(svc *UploadService) {
		svc.now = now
	}
}

func NewUploadService(
	repo *Repository,
	limiter *ratelimit.Limiter,
	baseURL string,
	opts ...UploadServiceOpts,
) *UploadService {

	svc := &UploadService{
		repo:            repo,
		limiter:         limiter,
		baseURL:         baseURL,
		maxArchiveBytes: DefaultMaxArchiveBytes,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func (slf *UploadService) MaxArchiveBytes() int64 {
	return slf.maxArchiveBytes
}

// Upload validates the request in a fixed order, resolves new-vs-update,
// enforces size and rate limits, authorizes updates and persists the
// artifacts. Quota is recorded only after a successful persist, so a
// rejected upload never consumes quota.
func (slf *UploadService) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if len(req.MetadataJSON) == 0 || req.Archive == nil {
		return nil, ErrMissingFields
	}

	// An update attempt needs both an ID and a token. Anything else is
	// a new-project attempt and the server mints the ID itself.
	isUpdate := req.ProjectID != "" && req.AuthorToken != ""

	var projectID string

	if isUpdate {
		if !identity.ValidProjectID(req.ProjectID) {
			return nil, ErrInvalidProjectID
		}

		projectID = req.ProjectID
	} else {
		minted, err := slf.mintProjectID(ctx)
		if err != nil {
			return nil, err
		}

		projectID = minted
	}

	if req.ArchiveSize > slf.maxArchiveBytes {
		return nil, &ArchiveTooLargeError{
			SizeBytes:  req.ArchiveSize,
			LimitBytes: slf.maxArchiveBytes,
		}
	}

	totalUploadSize := req.ArchiveSize + req.PreviewSize

	decision := slf.limiter.Check(ctx, req.ClientKey, totalUploadSize)
	if !decision.Allowed {
		return nil, &ratelimit.QuotaExceededError{
			QuotaBytes:        slf.limiter.Quota(),
			RemainingBytes:    decision.RemainingBytes,
			RetryAfterMinutes: decision.RetryAfterMinutes,
		}
	}

	clientMetadata := &Metadata{}
	if err := json.Unmarshal(req.MetadataJSON, clientMetadata); err != nil {
		return nil, ErrInvalidMetadata
	}

	auth, err := slf.repo.ReadAuth(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := slf.now().UTC()

	var newAuthorToken string

	if isUpdate {
		if auth == nil {
			return nil, ErrProjectNotFound
		}

		if identity.HashToken(req.AuthorToken) != auth.TokenHash {
			return nil, ErrInvalidAuthorToken
		}

		auth.LastUpdated = now
	} else {
		token, err := identity.NewAuthorToken()
		if err != nil {
			return nil, err
		}

		newAuthorToken = token
		auth = &AuthRecord{
			TokenHash:   identity.HashToken(token),
			CreatedAt:   now,
			LastUpdated: now,
		}
	}

	if err := slf.repo.WriteAuth(ctx, projectID, auth); err != nil {
		return nil, err
	}

	if err := slf.repo.WriteArchive(ctx, projectID, req.Archive, req.ArchiveSize); err != nil {
		return nil, err
	}

	// createdAt survives updates; everything else is overwritten with
	// whatever the client sent.
	clientMetadata.CreatedAt = now

	if existing, err := slf.repo.ReadMetadata(ctx, projectID); err == nil {
		clientMetadata.CreatedAt = existing.CreatedAt
	}

	if err := slf.repo.WriteMetadata(ctx, projectID, clientMetadata); err != nil {
		return nil, err
	}

	if req.Preview != nil {
		if err := slf.repo.WritePreview(ctx, projectID, req.Preview, req.PreviewSize); err != nil {
			return nil, err
		}
	}

	slf.limiter.RecordUpload(ctx, req.ClientKey, totalUploadSize)

	result := &UploadResult{
		URL:       fmt.Sprintf("%s/%s", slf.baseURL, projectID),
		ProjectID: projectID,
		IsUpdate:  isUpdate,
	}

	if newAuthorToken != "" {
		result.AuthorToken = newAuthorToken
		result.Message = tokenWarning
	}

	return result, nil
}

// mintProjectID generates an ID and runs a bounded collision check
// against the store. A store error during the check does not abort the
// upload; the candidate is used as generated.
func (slf *UploadService) mintProjectID(ctx context.Context) (string, error) {
	var projectID string

	for attempt := 0; attempt < mintAttempts; attempt++ {
		minted, err := identity.NewProjectID()
		if err != nil {
			return "", err
		}

		projectID = minted

		exists, err := slf.repo.Exists(ctx, projectID)
		if err != nil {
			log.Warn().Err(err).Msg("project id collision check failed, using candidate")

			return projectID, nil
		}

		if !exists {
			return projectID, nil
		}

		log.Warn().Str("project_id", projectID).Msg("project id collision, regenerating")
	}

	return projectID, nil
}
