package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"reqapi/internal/audit"
	"reqapi/internal/generation"
	"reqapi/internal/logger"
	"reqapi/internal/metrics"
	"reqapi/internal/model"
	"reqapi/internal/repository"
	"reqapi/internal/sanitize"
	"reqapi/internal/storage"
)

// Stage names the pipeline step a failure belongs to.
type Stage string

const (
	StageValidation  Stage = "validation"
	StagePersistence Stage = "persistence"
	StageGeneration  Stage = "generation"
	StageAudit       Stage = "audit"
)

// State is a point in the submission lifecycle.
type State string

const (
	StateReceived  State = "received"
	StateValidated State = "validated"
	StateStored    State = "stored"
	StateGenerated State = "generated"
	StateLogged    State = "logged"
	StateFailed    State = "failed"
)

const (
	ReasonMissingText  = "missing-text"
	ReasonUploadFailed = "upload-failed"
	ReasonStoreFailed  = "store-failed"
	ReasonAppendFailed = "append-failed"
)

var ErrTextRequired = errors.New("text field is required")

// StageError is the single failure type Submit returns.
// Reason is safe to show to callers; Err carries the full diagnostic.
type StageError struct {
	Stage  Stage
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Reason, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FileUpload is the optional file part of a submission. Body is streamed to
// object storage when one is configured and never read otherwise.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Submission is one inbound requirement.
type Submission struct {
	Text string
	File *FileUpload
}

// SubmissionResult is returned when every stage succeeded.
type SubmissionResult struct {
	Requirement *model.Requirement
	Artifact    string
	Audit       *model.AuditRecord
}

// SubmissionService runs store -> generate -> audit for one requirement.
type SubmissionService interface {
	// Submit validates and sanitizes the text, persists the requirement,
	// generates code from it and appends the pair to the audit log. Stages run
	// strictly in order and the first failure stops the pipeline; nothing
	// already written is rolled back.
	Submit(ctx context.Context, sub Submission) (*SubmissionResult, error)
}

// Timeouts bound each remote call. Zero means no deadline beyond the caller's.
type Timeouts struct {
	Store      time.Duration
	Generation time.Duration
	Audit      time.Duration
}

// Options carries the optional collaborators of the submission service.
type Options struct {
	Timeouts Timeouts
	Metrics  *metrics.Submission
	Logger   *zap.Logger
}

type submissionService struct {
	repo     repository.RequirementRepository
	gen      generation.Generator
	audit    audit.Logger
	files    storage.Storage
	timeouts Timeouts
	metrics  *metrics.Submission
	log      *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewSubmissionService constructs a SubmissionService. files may be nil, in
// which case an uploaded file is referenced by its sanitized name only.
func NewSubmissionService(repo repository.RequirementRepository, gen generation.Generator, auditLog audit.Logger, files storage.Storage, opts Options) SubmissionService {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &submissionService{
		repo:     repo,
		gen:      gen,
		audit:    auditLog,
		files:    files,
		timeouts: opts.Timeouts,
		metrics:  opts.Metrics,
		log:      log.With(zap.String("component", "submission")),
		tracer:   otel.Tracer("reqapi/internal/service"),
		now:      time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, sub Submission) (*SubmissionResult, error) {
	log := s.log
	if id := logger.RequestID(ctx); id != "" {
		log = log.With(zap.String("request_id", id))
	}
	transition(log, StateReceived)

	if strings.TrimSpace(sub.Text) == "" {
		return nil, fail(log, &StageError{Stage: StageValidation, Reason: ReasonMissingText, Err: ErrTextRequired})
	}
	text := sanitize.Text(sub.Text)
	if strings.TrimSpace(text) == "" {
		return nil, fail(log, &StageError{Stage: StageValidation, Reason: ReasonMissingText, Err: ErrTextRequired})
	}
	transition(log, StateValidated)

	var stored *model.Requirement
	err := s.runStage(ctx, StagePersistence, s.timeouts.Store, func(ctx context.Context) error {
		ref, err := s.fileReference(ctx, sub.File)
		if err != nil {
			return &StageError{Stage: StagePersistence, Reason: ReasonUploadFailed, Err: err}
		}
		req := &model.Requirement{
			ID:            uuid.New().String(),
			FileReference: ref,
			Text:          text,
			CreatedAt:     s.now().UTC(),
		}
		stored, err = s.repo.Create(ctx, req)
		if err != nil {
			return &StageError{Stage: StagePersistence, Reason: ReasonStoreFailed, Err: fmt.Errorf("db save failed: %w", err)}
		}
		return nil
	})
	if err != nil {
		return nil, fail(log, err)
	}
	transition(log, StateStored, zap.String("requirement_id", stored.ID))

	var artifact string
	err = s.runStage(ctx, StageGeneration, s.timeouts.Generation, func(ctx context.Context) error {
		out, err := s.gen.Generate(ctx, text)
		if err != nil {
			reason := string(generation.ReasonHTTPError)
			var genErr *generation.Error
			if errors.As(err, &genErr) {
				reason = string(genErr.Reason)
			}
			return &StageError{Stage: StageGeneration, Reason: reason, Err: err}
		}
		artifact = strings.TrimSpace(out)
		if artifact == "" {
			return &StageError{
				Stage:  StageGeneration,
				Reason: string(generation.ReasonEmptyOrMalformed),
				Err:    &generation.Error{Reason: generation.ReasonEmptyOrMalformed},
			}
		}
		return nil
	})
	if err != nil {
		return nil, fail(log, err)
	}
	transition(log, StateGenerated, zap.Int("artifact_bytes", len(artifact)))

	var rec *model.AuditRecord
	err = s.runStage(ctx, StageAudit, s.timeouts.Audit, func(ctx context.Context) error {
		var err error
		rec, err = s.audit.Append(ctx, text, artifact)
		if err != nil {
			return &StageError{Stage: StageAudit, Reason: ReasonAppendFailed, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, fail(log, err)
	}
	transition(log, StateLogged)

	return &SubmissionResult{Requirement: stored, Artifact: artifact, Audit: rec}, nil
}

// fileReference uploads f when object storage is configured and returns the
// object key; otherwise it returns the sanitized file name. nil means no file.
func (s *submissionService) fileReference(ctx context.Context, f *FileUpload) (*string, error) {
	if f == nil {
		return nil, nil
	}
	name := sanitize.Filename(f.Filename)

	if s.files == nil {
		if name == "" {
			return nil, nil
		}
		return &name, nil
	}

	key := filepath.ToSlash(filepath.Join("uploads", uuid.New().String()+filepath.Ext(name)))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	info, err := s.files.Put(ctx, key, f.Body, storage.PutObjectOptions{
		Size:        f.Size,
		ContentType: ct,
		Metadata:    map[string]string{"original-filename": name},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	return &info.Key, nil
}

func (s *submissionService) runStage(ctx context.Context, stage Stage, timeout time.Duration, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "submission."+string(stage), trace.WithAttributes(attribute.String("stage", string(stage))))
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	s.metrics.Observe(string(stage), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stage)+" failed")
	}
	return err
}

func transition(log *zap.Logger, to State, fields ...zap.Field) {
	log.Debug("submission_state", append(fields, zap.String("state", string(to)))...)
}

func fail(log *zap.Logger, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		transition(log, StateFailed, zap.String("stage", string(se.Stage)), zap.String("reason", se.Reason))
	}
	return err
}
