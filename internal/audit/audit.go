// Package audit appends input/output pairs to an external spreadsheet.
package audit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	htransport "google.golang.org/api/transport/http"

	"reqapi/internal/config"
	"reqapi/internal/model"
)

// TimestampLayout is the UTC format written to the timestamp column.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var ErrSpreadsheetIDRequired = errors.New("audit spreadsheet id is required")

// Logger appends one audit row per completed generation.
// Appends are not idempotent: a retried call may write a second row.
type Logger interface {
	Append(ctx context.Context, inputText, artifact string) (*model.AuditRecord, error)
}

// Error wraps a failed append.
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("audit append failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("audit append failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// SheetsLogger writes rows to a Google Sheets range with RAW input.
type SheetsLogger struct {
	svc           *sheets.Service
	spreadsheetID string
	writeRange    string
	now           func() time.Time
}

var _ Logger = (*SheetsLogger)(nil)

// NewSheetsLogger builds a logger authenticated with the service-account file
// in cfg. When hc is set its transport is wrapped with the credentials, so the
// caller's instrumentation and timeout still apply. Extra client options are
// appended last and win, which is how tests point the client at a fake endpoint.
func NewSheetsLogger(ctx context.Context, cfg config.AuditConfig, hc *http.Client, opts ...option.ClientOption) (*SheetsLogger, error) {
	if cfg.SpreadsheetID == "" {
		return nil, ErrSpreadsheetIDRequired
	}

	authOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		authOpts = append(authOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	clientOpts := authOpts
	if hc != nil {
		client := &http.Client{Timeout: hc.Timeout, Transport: hc.Transport}
		if cfg.CredentialsFile != "" {
			base := hc.Transport
			if base == nil {
				base = http.DefaultTransport
			}
			rt, err := htransport.NewTransport(ctx, base, authOpts...)
			if err != nil {
				return nil, fmt.Errorf("create sheets transport: %w", err)
			}
			client.Transport = rt
		}
		// WithHTTPClient bypasses option-based auth, which the transport above already carries.
		clientOpts = []option.ClientOption{option.WithHTTPClient(client)}
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	writeRange := cfg.Range
	if writeRange == "" {
		writeRange = "Sheet1!A:C"
	}

	return &SheetsLogger{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		writeRange:    writeRange,
		now:           time.Now,
	}, nil
}

// Append writes [inputText, artifact, timestamp] as one row.
func (l *SheetsLogger) Append(ctx context.Context, inputText, artifact string) (*model.AuditRecord, error) {
	loggedAt := l.now().UTC()

	vr := &sheets.ValueRange{
		Values: [][]interface{}{{inputText, artifact, loggedAt.Format(TimestampLayout)}},
	}
	resp, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, l.writeRange, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) {
			return nil, &Error{StatusCode: gErr.Code, Err: err}
		}
		return nil, &Error{Err: err}
	}

	rec := &model.AuditRecord{
		InputText:         inputText,
		GeneratedArtifact: artifact,
		LoggedAt:          loggedAt,
	}
	if resp.Updates != nil {
		rec.UpdatedRange = resp.Updates.UpdatedRange
	}
	return rec, nil
}
