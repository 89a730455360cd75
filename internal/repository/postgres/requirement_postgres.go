package postgres

import (
	"context"
	"database/sql"

	"reqapi/internal/model"
	"reqapi/internal/repository"
)

// RequirementPostgres is a PostgreSQL implementation of repository.RequirementRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type RequirementPostgres struct {
	db *sql.DB
}

// NewRequirementPostgres creates a new RequirementPostgres repository.
func NewRequirementPostgres(db *sql.DB) *RequirementPostgres {
	return &RequirementPostgres{db: db}
}

var _ repository.RequirementRepository = (*RequirementPostgres)(nil)

// Create inserts a new requirement row and returns the stored record.
func (r *RequirementPostgres) Create(ctx context.Context, req *model.Requirement) (*model.Requirement, error) {
	const q = `
		INSERT INTO requirements (id, file_reference, text, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, file_reference, text, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		req.ID,
		nullString(req.FileReference),
		req.Text,
		req.CreatedAt,
	)

	var (
		out     model.Requirement
		fileRef sql.NullString
	)
	if err := row.Scan(&out.ID, &fileRef, &out.Text, &out.CreatedAt); err != nil {
		return nil, err
	}
	if fileRef.Valid {
		out.FileReference = &fileRef.String
	}
	return &out, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
