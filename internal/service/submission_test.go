package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	auditMocks "reqapi/internal/audit/mocks"
	"reqapi/internal/generation"
	genMocks "reqapi/internal/generation/mocks"
	"reqapi/internal/logger"
	"reqapi/internal/metrics"
	"reqapi/internal/model"
	repoMocks "reqapi/internal/repository/mocks"
	"reqapi/internal/storage"
	storeMocks "reqapi/internal/storage/mocks"
)

type fixture struct {
	repo  *repoMocks.MockRequirementRepository
	gen   *genMocks.MockGenerator
	audit *auditMocks.MockLogger
	files *storeMocks.MockStorage
	calls []string
}

func newFixture() *fixture {
	return &fixture{
		repo:  new(repoMocks.MockRequirementRepository),
		gen:   new(genMocks.MockGenerator),
		audit: new(auditMocks.MockLogger),
		files: new(storeMocks.MockStorage),
	}
}

func (f *fixture) service(withFiles bool, opts Options) SubmissionService {
	var files storage.Storage
	if withFiles {
		files = f.files
	}
	return NewSubmissionService(f.repo, f.gen, f.audit, files, opts)
}

func (f *fixture) record(name string) func(mock.Arguments) {
	return func(mock.Arguments) { f.calls = append(f.calls, name) }
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.repo.AssertExpectations(t)
	f.gen.AssertExpectations(t)
	f.audit.AssertExpectations(t)
	f.files.AssertExpectations(t)
}

func requireStageError(t *testing.T, err error, stage Stage, reason string) *StageError {
	t.Helper()
	var se *StageError
	require.True(t, errors.As(err, &se), "expected *StageError, got %T: %v", err, err)
	assert.Equal(t, stage, se.Stage)
	assert.Equal(t, reason, se.Reason)
	return se
}

func TestSubmissionService_Submit_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	var saved *model.Requirement
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r *model.Requirement) bool {
		return r.Text == "Build a login form" && r.FileReference == nil && r.ID != "" && !r.CreatedAt.IsZero()
	})).Run(func(args mock.Arguments) {
		f.calls = append(f.calls, "store")
		saved = args.Get(1).(*model.Requirement)
	}).Return(&model.Requirement{ID: "req-1", Text: "Build a login form"}, nil).Once()

	f.gen.On("Generate", mock.Anything, "Build a login form").
		Run(f.record("generate")).
		Return("\n  <code>...</code>  \n", nil).Once()

	f.audit.On("Append", mock.Anything, "Build a login form", "<code>...</code>").
		Run(f.record("audit")).
		Return(&model.AuditRecord{InputText: "Build a login form", GeneratedArtifact: "<code>...</code>"}, nil).Once()

	res, err := f.service(false, Options{}).Submit(ctx, Submission{Text: "Build a login form"})

	require.NoError(t, err)
	assert.Equal(t, "<code>...</code>", res.Artifact)
	assert.Equal(t, "req-1", res.Requirement.ID)
	assert.NotNil(t, res.Audit)
	assert.Equal(t, []string{"store", "generate", "audit"}, f.calls)
	assert.Equal(t, time.UTC, saved.CreatedAt.Location())
	f.assertExpectations(t)
}

func TestSubmissionService_Submit_Validation(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "absent", text: ""},
		{name: "whitespace only", text: "  \n\t "},
		{name: "only markup", text: "<p></p><br/>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			res, err := f.service(true, Options{}).Submit(context.Background(), Submission{
				Text: tt.text,
				File: &FileUpload{Filename: "brief.pdf", Body: strings.NewReader("x")},
			})

			assert.Nil(t, res)
			se := requireStageError(t, err, StageValidation, ReasonMissingText)
			assert.ErrorIs(t, se, ErrTextRequired)
			f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.files.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
			f.audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmissionService_Submit_SanitizesBeforeStoreAndGenerate(t *testing.T) {
	f := newFixture()

	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r *model.Requirement) bool {
		return r.Text == `Build alert("x") a form`
	})).Return(&model.Requirement{ID: "req-1"}, nil).Once()
	f.gen.On("Generate", mock.Anything, `Build alert("x") a form`).Return("code", nil).Once()
	f.audit.On("Append", mock.Anything, `Build alert("x") a form`, "code").Return(&model.AuditRecord{}, nil).Once()

	_, err := f.service(false, Options{}).Submit(context.Background(), Submission{
		Text: `Build <script>alert("x")</script> a form`,
	})

	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestSubmissionService_Submit_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()

	res, err := f.service(false, Options{}).Submit(context.Background(), Submission{Text: "Build a login form"})

	assert.Nil(t, res)
	requireStageError(t, err, StagePersistence, ReasonStoreFailed)
	assert.ErrorContains(t, err, "db save failed: connection refused")
	f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestSubmissionService_Submit_GenerationFailures(t *testing.T) {
	tests := []struct {
		name       string
		out        string
		genErr     error
		wantReason string
	}{
		{
			name:       "non-success status",
			genErr:     &generation.Error{Reason: generation.ReasonHTTPError, StatusCode: 503, Detail: `{"error":"overloaded"}`},
			wantReason: string(generation.ReasonHTTPError),
		},
		{
			name:       "envelope without artifact",
			genErr:     &generation.Error{Reason: generation.ReasonEmptyOrMalformed},
			wantReason: string(generation.ReasonEmptyOrMalformed),
		},
		{
			name:       "blank artifact without error",
			out:        "   \n",
			wantReason: string(generation.ReasonEmptyOrMalformed),
		},
		{
			name:       "unclassified error",
			genErr:     errors.New("something odd"),
			wantReason: string(generation.ReasonHTTPError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.repo.On("Create", mock.Anything, mock.Anything).
				Run(f.record("store")).
				Return(&model.Requirement{ID: "req-1"}, nil).Once()
			f.gen.On("Generate", mock.Anything, "Build a login form").
				Run(f.record("generate")).
				Return(tt.out, tt.genErr).Once()

			res, err := f.service(false, Options{}).Submit(context.Background(), Submission{Text: "Build a login form"})

			assert.Nil(t, res)
			requireStageError(t, err, StageGeneration, tt.wantReason)
			assert.Equal(t, []string{"store", "generate"}, f.calls)
			f.audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
			f.assertExpectations(t)
		})
	}
}

func TestSubmissionService_Submit_AuditFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.repo.On("Create", mock.Anything, mock.Anything).Return(&model.Requirement{ID: "req-1"}, nil).Once()
	f.gen.On("Generate", mock.Anything, mock.Anything).Return("code", nil).Once()
	f.audit.On("Append", mock.Anything, "Build a login form", "code").Return(nil, errors.New("invalid_grant")).Once()

	res, err := f.service(false, Options{}).Submit(context.Background(), Submission{Text: "Build a login form"})

	assert.Nil(t, res)
	requireStageError(t, err, StageAudit, ReasonAppendFailed)
	f.assertExpectations(t)
}

func TestSubmissionService_Submit_FileUpload(t *testing.T) {
	t.Run("stored in object storage", func(t *testing.T) {
		f := newFixture()
		body := strings.NewReader("%PDF-1.7")
		f.files.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "uploads/") && strings.HasSuffix(key, ".pdf")
		}), body, storage.PutObjectOptions{
			Size:        8,
			ContentType: "application/pdf",
			Metadata:    map[string]string{"original-filename": "brief.pdf"},
		}).Return(func(_ context.Context, key string, _ io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			return storage.ObjectInfo{Key: key, Size: opt.Size}
		}, nil).Once()
		f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r *model.Requirement) bool {
			return r.FileReference != nil && strings.HasPrefix(*r.FileReference, "uploads/")
		})).Return(&model.Requirement{ID: "req-1"}, nil).Once()
		f.gen.On("Generate", mock.Anything, mock.Anything).Return("code", nil).Once()
		f.audit.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(&model.AuditRecord{}, nil).Once()

		_, err := f.service(true, Options{}).Submit(context.Background(), Submission{
			Text: "Build a login form",
			File: &FileUpload{Filename: "../brief.pdf", ContentType: "application/pdf", Size: 8, Body: body},
		})

		require.NoError(t, err)
		f.assertExpectations(t)
	})

	t.Run("name only without object storage", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r *model.Requirement) bool {
			return r.FileReference != nil && *r.FileReference == "brief.pdf"
		})).Return(&model.Requirement{ID: "req-1"}, nil).Once()
		f.gen.On("Generate", mock.Anything, mock.Anything).Return("code", nil).Once()
		f.audit.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(&model.AuditRecord{}, nil).Once()

		_, err := f.service(false, Options{}).Submit(context.Background(), Submission{
			Text: "Build a login form",
			File: &FileUpload{Filename: "brief.pdf", Body: strings.NewReader("x")},
		})

		require.NoError(t, err)
		f.assertExpectations(t)
	})

	t.Run("upload failure stops before the database", func(t *testing.T) {
		f := newFixture()
		f.files.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, errors.New("bucket gone")).Once()

		_, err := f.service(true, Options{}).Submit(context.Background(), Submission{
			Text: "Build a login form",
			File: &FileUpload{Filename: "brief.pdf", Body: strings.NewReader("x")},
		})

		requireStageError(t, err, StagePersistence, ReasonUploadFailed)
		assert.ErrorContains(t, err, "upload to storage: bucket gone")
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})
}

func TestSubmissionService_Submit_StageTimeouts(t *testing.T) {
	f := newFixture()
	deadlines := map[string]bool{}
	captureDeadline := func(name string) func(mock.Arguments) {
		return func(args mock.Arguments) {
			_, ok := args.Get(0).(context.Context).Deadline()
			deadlines[name] = ok
		}
	}
	f.repo.On("Create", mock.Anything, mock.Anything).Run(captureDeadline("store")).Return(&model.Requirement{ID: "r"}, nil).Once()
	f.gen.On("Generate", mock.Anything, mock.Anything).Run(captureDeadline("generate")).Return("code", nil).Once()
	f.audit.On("Append", mock.Anything, mock.Anything, mock.Anything).Run(captureDeadline("audit")).Return(&model.AuditRecord{}, nil).Once()

	svc := f.service(false, Options{Timeouts: Timeouts{Store: time.Second, Generation: time.Minute, Audit: 30 * time.Second}})
	_, err := svc.Submit(context.Background(), Submission{Text: "Build a login form"})

	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"store": true, "generate": true, "audit": true}, deadlines)
}

func TestSubmissionService_Submit_MetricsAndStateLog(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewSubmission(reg)
	require.NoError(t, err)
	core, logs := observer.New(zap.DebugLevel)

	f := newFixture()
	f.repo.On("Create", mock.Anything, mock.Anything).Return(&model.Requirement{ID: "req-1"}, nil).Once()
	f.gen.On("Generate", mock.Anything, mock.Anything).Return("", &generation.Error{Reason: generation.ReasonHTTPError}).Once()

	_, err = f.service(false, Options{Metrics: m, Logger: zap.New(core)}).Submit(context.Background(), Submission{Text: "Build a login form"})
	require.Error(t, err)

	n, err := testutil.GatherAndCount(reg, "submissions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n) // persistence/success and generation/failure

	var states []string
	for _, e := range logs.FilterMessage("submission_state").All() {
		states = append(states, e.ContextMap()["state"].(string))
	}
	assert.Equal(t, []string{"received", "validated", "stored", "failed"}, states)
}

func TestSubmissionService_Submit_StateLogCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	f := newFixture()
	ctx := logger.ContextWithRequestID(context.Background(), "req-7")
	_, err := f.service(false, Options{Logger: zap.New(core)}).Submit(ctx, Submission{Text: ""})
	require.Error(t, err)

	entries := logs.FilterMessage("submission_state").All()
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, "req-7", e.ContextMap()["request_id"])
	}
}

func TestStageError(t *testing.T) {
	inner := errors.New("boom")
	err := &StageError{Stage: StageAudit, Reason: ReasonAppendFailed, Err: inner}
	assert.Equal(t, "audit failed (append-failed): boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
