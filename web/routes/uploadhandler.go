package routes

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"vibelink/core/api"
	"vibelink/core/projects"
	"vibelink/core/ratelimit"
	"vibelink/web/middlewares"
)

type UploadHandler struct {
	Svc *projects.UploadService
}

const RouteUpload = "/upload"

func (handler *UploadHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	metadataJSON, err := readMetadataField(c)
	if err != nil {
		log.Error().Err(err).Msg("failed to read metadata form field")
		return c.String(http.StatusBadRequest, projects.ErrMissingFields.Error())
	}

	req := &projects.UploadRequest{
		MetadataJSON: metadataJSON,
		ProjectID:    c.FormValue("projectId"),
		AuthorToken:  c.FormValue("authorToken"),
		ClientKey:    middlewares.ClientKey(c),
	}

	zipHeader, err := c.FormFile("zip")
	if err == nil {
		archive, err := zipHeader.Open()
		if err != nil {
			log.Error().Err(err).Msg("failed to open archive part")
			return c.String(http.StatusInternalServerError, "Internal server error")
		}

		defer archive.Close()

		req.Archive = archive
		req.ArchiveSize = zipHeader.Size
	}

	if previewHeader, err := c.FormFile("preview"); err == nil {
		preview, err := previewHeader.Open()
		if err != nil {
			log.Error().Err(err).Msg("failed to open preview part")
			return c.String(http.StatusInternalServerError, "Internal server error")
		}

		defer preview.Close()

		req.Preview = preview
		req.PreviewSize = previewHeader.Size
	}

	result, err := handler.Svc.Upload(ctx, req)
	if err != nil {
		return writeUploadError(c, err)
	}

	return c.JSON(http.StatusOK, api.BuildUploadResponse(result))
}

// The metadata field may arrive as an inline form value or as an
// attached file; both are accepted.
func readMetadataField(c echo.Context) ([]byte, error) {
	if value := c.FormValue("metadata"); value != "" {
		return []byte(value), nil
	}

	header, err := c.FormFile("metadata")
	if err != nil {
		return nil, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}

	defer file.Close()

	return io.ReadAll(file)
}

func writeUploadError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, projects.ErrMissingFields),
		errors.Is(err, projects.ErrInvalidProjectID),
		errors.Is(err, projects.ErrInvalidMetadata):
		return c.String(http.StatusBadRequest, err.Error())

	case errors.Is(err, projects.ErrProjectNotFound):
		return c.String(
			http.StatusNotFound,
			"Project not found. Cannot update a project that doesn't exist.",
		)

	case errors.Is(err, projects.ErrInvalidAuthorToken):
		return c.String(
			http.StatusForbidden,
			"Invalid author token. Only the original author can update this project.",
		)
	}

	var tooLarge *projects.ArchiveTooLargeError
	if errors.As(err, &tooLarge) {
		return c.String(http.StatusRequestEntityTooLarge, tooLarge.Error())
	}

	var quota *ratelimit.QuotaExceededError
	if errors.As(err, &quota) {
		retryAfterSeconds := quota.RetryAfterMinutes * 60
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 3600
		}

		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))

		return c.String(http.StatusTooManyRequests, quota.Error())
	}

	log.Error().Err(err).Msg("upload failed")

	return c.String(http.StatusInternalServerError, "Internal server error")
}
