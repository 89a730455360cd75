package sqlite

import (
	"context"
	"database/sql"

	"reqapi/internal/model"
	"reqapi/internal/repository"
)

// RequirementSQLite stores requirements in a SQLite database.
type RequirementSQLite struct {
	db *sql.DB
}

// NewRequirementSQLite creates a new RequirementSQLite repository.
func NewRequirementSQLite(db *sql.DB) *RequirementSQLite {
	return &RequirementSQLite{db: db}
}

var _ repository.RequirementRepository = (*RequirementSQLite)(nil)

// Create inserts a new requirement row. Timestamps are stored in UTC.
func (r *RequirementSQLite) Create(ctx context.Context, req *model.Requirement) (*model.Requirement, error) {
	const q = `INSERT INTO requirements (id, file_reference, text, created_at) VALUES (?, ?, ?, ?)`

	var fileRef sql.NullString
	if req.FileReference != nil {
		fileRef = sql.NullString{String: *req.FileReference, Valid: true}
	}
	createdAt := req.CreatedAt.UTC()

	if _, err := r.db.ExecContext(ctx, q, req.ID, fileRef, req.Text, createdAt); err != nil {
		return nil, err
	}

	out := *req
	out.CreatedAt = createdAt
	return &out, nil
}
