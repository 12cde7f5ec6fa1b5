package api

import "vibelink/core/projects"

// UploadResponse is the JSON body of a successful POST /upload.
// AuthorToken and Message appear only on first creation; the token is
// shown exactly once and cannot be recovered afterwards.
type UploadResponse struct {
	Success     bool   `json:"success"`
	URL         string `json:"url"`
	ProjectID   string `json:"projectId"`
	IsUpdate    bool   `json:"isUpdate"`
	AuthorToken string `json:"authorToken,omitempty"`
	Message     string `json:"message,omitempty"`
}

func BuildUploadResponse(result *projects.UploadResult) UploadResponse {
	return UploadResponse{
		Success:     true,
		URL:         result.URL,
		ProjectID:   result.ProjectID,
		IsUpdate:    result.IsUpdate,
		AuthorToken: result.AuthorToken,
		Message:     result.Message,
	}
}
