package routes

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"vibelink/core/identity"
	"vibelink/core/projects"
)

type ProjectHandler struct {
	Repo *projects.Repository
}

const (
	RouteDownload = "/:projectID/download"
	RouteMetadata = "/:projectID/metadata"
	RoutePreview  = "/:projectID/preview.png"
)

// lookup resolves the path param and checks the project exists before
// any artifact is touched. Existence is metadata-keyed.
func (handler *ProjectHandler) lookup(c echo.Context) (string, *projects.Metadata, error) {
	projectID := c.Param("projectID")

	if !identity.ValidProjectID(projectID) {
		return "", nil, projects.ErrProjectNotFound
	}

	metadata, err := handler.Repo.ReadMetadata(c.Request().Context(), projectID)
	if err != nil {
		return "", nil, err
	}

	return projectID, metadata, nil
}

func (handler *ProjectHandler) Download(c echo.Context) error {
	projectID, _, err := handler.lookup(c)
	if err != nil {
		return writeProjectError(c, err, "Project not found")
	}

	archive, err := handler.Repo.OpenArchive(c.Request().Context(), projectID)
	if err != nil {
		return writeProjectError(c, err, "Project archive not found")
	}

	defer archive.Close()

	c.Response().Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s.zip"`, projectID),
	)

	return c.Stream(http.StatusOK, "application/zip", archive)
}

func (handler *ProjectHandler) Metadata(c echo.Context) error {
	_, metadata, err := handler.lookup(c)
	if err != nil {
		return writeProjectError(c, err, "Project not found")
	}

	return c.JSON(http.StatusOK, metadata)
}

func (handler *ProjectHandler) Preview(c echo.Context) error {
	projectID, _, err := handler.lookup(c)
	if err != nil {
		return writeProjectError(c, err, "Project not found")
	}

	preview, err := handler.Repo.OpenPreview(c.Request().Context(), projectID)
	if err != nil {
		return writeProjectError(c, err, "No preview available")
	}

	defer preview.Close()

	c.Response().Header().Set("Cache-Control", "public, max-age=3600")

	return c.Stream(http.StatusOK, "image/png", preview)
}

func writeProjectError(c echo.Context, err error, notFoundMsg string) error {
	if errors.Is(err, projects.ErrProjectNotFound) {
		return c.String(http.StatusNotFound, notFoundMsg)
	}

	log.Error().Err(err).Str("project_id", c.Param("projectID")).Msg("project read failed")

	return c.String(http.StatusInternalServerError, "Internal server error")
}
