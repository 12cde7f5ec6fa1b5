package projects

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFields      = errors.New("Missing required fields: metadata, zip")
	ErrInvalidProjectID   = errors.New("Invalid project ID format.")
	ErrInvalidMetadata    = errors.New("Metadata is not valid JSON.")
	ErrProjectNotFound    = errors.New("project_not_found")
	ErrInvalidAuthorToken = errors.New("invalid_author_token")
)

// ArchiveTooLargeError reports the oversize amount back to the caller.
type ArchiveTooLargeError struct {
	SizeBytes  int64
	LimitBytes int64
}

func (e *ArchiveTooLargeError) Error() string {
	return fmt.Sprintf(
		"Project too large: %.1fMB exceeds the %dMB limit. "+
			"Vibelink is for small vibe-coded projects. "+
			"Make sure node_modules and other large directories are excluded.",
		float64(e.SizeBytes)/(1024*1024),
		e.LimitBytes/(1024*1024),
	)
}
