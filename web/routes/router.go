package routes

import (
	"crypto/rand"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"

	"vibelink/web/middlewares"
)

// Register wires the core HTTP surface onto an echo instance. CORS is
// wide open on purpose: the endpoints are consumed by browsers and
// curl from arbitrary origins.
func Register(e *echo.Echo, upload *UploadHandler, project *ProjectHandler) {
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return ulid.MustNew(ulid.Now(), rand.Reader).String()
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/ping", ping)

	e.POST(RouteUpload, upload.Upload, middlewares.ResolveClientKey)

	e.GET(RouteDownload, project.Download)
	e.GET(RouteMetadata, project.Metadata)
	e.GET(RoutePreview, project.Preview)
}

func ping(c echo.Context) error {
	return c.String(http.StatusOK, "pong")
}
