package model

import "time"

// Requirement is a stored user submission.
// Text is always sanitized before it reaches this type. FileReference is an
// opaque name or object key for the optional uploaded file; nil when no file
// was sent. This is a pure domain model with no persistence tags.
type Requirement struct {
	ID            string    `json:"id"`
	FileReference *string   `json:"file_reference,omitempty"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuditRecord is one row appended to the external audit spreadsheet.
type AuditRecord struct {
	InputText         string    `json:"input_text"`
	GeneratedArtifact string    `json:"generated_artifact"`
	LoggedAt          time.Time `json:"logged_at"`
	// UpdatedRange is the spreadsheet range the provider reports as written.
	UpdatedRange string `json:"updated_range,omitempty"`
}
