package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewTableToken returns an opaque, unguessable table token: a random
// (version 4) UUID without dashes, 32 hex characters.
func NewTableToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
