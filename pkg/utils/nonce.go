package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

// NewNonce returns a random URL-safe identifier.
func NewNonce() string {
	return gonanoid.Must(21)
}
