package projects

import "time"

// PreviewInfo describes how a project wants its preview rendered.
// Stored verbatim from the uploader's metadata.
type PreviewInfo struct {
	Type       string   `json:"type"`
	Src        string   `json:"src,omitempty"`
	Layout     string   `json:"layout,omitempty"`
	Components []string `json:"components,omitempty"`
}

// Metadata is the public vibelink.json document. CreatedAt is assigned
// by the server at first creation and preserved across updates.
type Metadata struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Author      string       `json:"author,omitempty"`
	ProjectID   string       `json:"projectId,omitempty"`
	ForkedFrom  string       `json:"forkedFrom,omitempty"`
	Preview     *PreviewInfo `json:"preview,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`

	Technologies []string `json:"technologies,omitempty"`
}

// AuthRecord is the private _auth.json document, written exactly once
// at creation and never served to clients. The token digest in it is
// the sole authorization source for later updates.
type AuthRecord struct {
	TokenHash   string    `json:"tokenHash"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}
