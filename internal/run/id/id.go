// Package id provides unique identifier generation for runs.
package id

import (
	"github.com/google/uuid"
)

// Generate creates a new unique run ID.
// Format: run-<uuid v7>, so IDs sort by creation time.
func Generate() string {
	u, err := uuid.NewV7()
	if err != nil {
		return "run-" + uuid.NewString()
	}
	return "run-" + u.String()
}
