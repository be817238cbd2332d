// Package impl contains the implementation of the application's business logic.
package impl

import (
	"strings"

	"github.com/google/uuid"
)

// parseID parses a UUID string. A malformed ID cannot name an existing row,
// so it is reported with the caller's not found error.
func parseID(id string, notFound error) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, notFound
	}

	return parsed, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
