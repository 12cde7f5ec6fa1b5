package routes

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"vibelink/core/projects"
	"vibelink/core/ratelimit"
	"vibelink/pkg/blobstore"
)

type routeEnv struct {
	echo  *echo.Echo
	store *blobstore.Memory
	repo  *projects.Repository
	svc   *projects.UploadService
}

func newRouteEnv(t *testing.T, quota int64, svcOpts ...projects.UploadServiceOpts) *routeEnv {
	t.Helper()

	store := blobstore.NewMemory()
	repo := projects.NewRepository(store)

	limiter := ratelimit.NewLimiter(
		ratelimit.NewBlobRecordStore(store),
		ratelimit.WithQuota(quota),
	)

	svc := projects.NewUploadService(repo, limiter, "https://vibelink.to", svcOpts...)

	e := echo.New()
	Register(e, &UploadHandler{Svc: svc}, &ProjectHandler{Repo: repo})

	return &routeEnv{echo: e, store: store, repo: repo, svc: svc}
}

func (env *routeEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	return rec
}

type uploadForm struct {
	metadata      string
	metadataFile  bool
	zip           []byte
	preview       []byte
	projectID     string
	authorToken   string
	omitZip       bool
	omitMetadata  bool
	extraMetadata map[string]string
}

func buildUploadRequest(t *testing.T, form uploadForm) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if !form.omitMetadata {
		if form.metadataFile {
			part, err := writer.CreateFormFile("metadata", "vibelink.json")
			require.NoError(t, err)

			_, err = part.Write([]byte(form.metadata))
			require.NoError(t, err)
		} else {
			require.NoError(t, writer.WriteField("metadata", form.metadata))
		}
	}

	if !form.omitZip {
		part, err := writer.CreateFormFile("zip", "vibelink-upload.zip")
		require.NoError(t, err)

		_, err = part.Write(form.zip)
		require.NoError(t, err)
	}

	if form.preview != nil {
		part, err := writer.CreateFormFile("preview", "vibelink-preview.png")
		require.NoError(t, err)

		_, err = part.Write(form.preview)
		require.NoError(t, err)
	}

	if form.projectID != "" {
		require.NoError(t, writer.WriteField("projectId", form.projectID))
	}

	if form.authorToken != "" {
		require.NoError(t, writer.WriteField("authorToken", form.authorToken))
	}

	for key, value := range form.extraMetadata {
		require.NoError(t, writer.WriteField(key, value))
	}

	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())

	return req
}
