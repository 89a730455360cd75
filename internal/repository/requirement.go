// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, sqlite) inside this directory.
package repository

import (
	"context"

	"reqapi/internal/model"
)

// RequirementRepository defines data access for requirements.
// No business logic here: strictly persistence. Rows are insert-only.
type RequirementRepository interface {
	// Create inserts a new requirement record.
	// The caller provides ID, sanitized non-empty Text and CreatedAt.
	// Returns the stored requirement as read back from the database.
	Create(ctx context.Context, req *model.Requirement) (*model.Requirement, error)
}
