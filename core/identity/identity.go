package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

const (
	// Alphabet for generated project IDs. Client-supplied IDs may
	// additionally carry uppercase letters, underscores and dashes.
	projectIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	ProjectIDLength   = 12
	AuthorTokenLength = 32
)

var projectIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// NewProjectID returns a short URL-friendly identifier. No uniqueness
// guarantee here; callers that care run a collision check against the
// store before first use.
func NewProjectID() (string, error) {
	b := make([]byte, ProjectIDLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	for i := range b {
		b[i] = projectIDAlphabet[int(b[i])%len(projectIDAlphabet)]
	}

	return string(b), nil
}

// NewAuthorToken returns the bearer secret handed out exactly once at
// project creation, as 64 lowercase hex characters.
func NewAuthorToken() (string, error) {
	b := make([]byte, AuthorTokenLength)

	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// HashToken is the digest stored in place of the raw token. Raw tokens
// are never persisted, so losing one is unrecoverable.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

// ValidProjectID gates client-supplied IDs before they are used as
// storage key prefixes.
func ValidProjectID(id string) bool {
	return projectIDPattern.MatchString(id)
}
