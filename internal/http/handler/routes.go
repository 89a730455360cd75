package handler

import (
	"context"
	"database/sql"
	"errors"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"reqapi/internal/http/middleware"
	"reqapi/internal/service"
)

const (
	msgTextRequired = "Text field is required."
	msgProcessed    = "Requirement processed and sent to Google Sheets"
	msgFailed       = "Error processing the requirement"
)

// submitResponse is the success body of POST /api/submit-requirement.
type submitResponse struct {
	RequestID         string `json:"request_id,omitempty"`
	Message           string `json:"message"`
	GeneratedArtifact string `json:"generatedArtifact"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// apiMiddleware (e.g. the rate limiter) applies to every route under /api.
func RegisterRoutes(app *fiber.App, db *sql.DB, subSvc service.SubmissionService, log *zap.Logger, apiMiddleware ...fiber.Handler) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	handlers := make([]fiber.Handler, 0, len(apiMiddleware))
	handlers = append(handlers, apiMiddleware...)
	api := app.Group("/api", handlers...)
	api.Post("/submit-requirement", SubmitRequirement(subSvc, log))
}

// HealthCheck reports readiness based on database connectivity.
//
// @Summary  Readiness probe
// @Tags     health
// @Produce  json
// @Success  200 {object} map[string]string
// @Failure  503 {object} errorPayload
// @Router   /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "dependency unavailable", "database")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200 while the process is serving.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// SubmitRequirement handles a multipart submission with a required "text"
// field and an optional "file" part.
//
// @Summary  Submit a requirement and generate code from it
// @Tags     requirements
// @Accept   multipart/form-data
// @Produce  json
// @Param    text formData string true  "Requirement text"
// @Param    file formData file   false "Requirement file"
// @Success  200 {object} submitResponse
// @Failure  400 {object} errorPayload
// @Failure  429 {object} errorPayload
// @Failure  500 {object} errorPayload
// @Router   /api/submit-requirement [post]
func SubmitRequirement(subSvc service.SubmissionService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub := service.Submission{Text: c.FormValue("text")}

		// No file part (or a non-multipart body) is not an error: the file is optional.
		if fh, err := c.FormFile("file"); err == nil {
			upload, closeFn, err := openUpload(fh)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "cannot open uploaded file", "")
			}
			defer closeFn()
			sub.File = upload
		}

		res, err := subSvc.Submit(c.UserContext(), sub)
		if err != nil {
			return submitError(c, log, err)
		}

		return c.Status(fiber.StatusOK).JSON(submitResponse{
			RequestID:         middleware.GetRequestID(c),
			Message:           msgProcessed,
			GeneratedArtifact: res.Artifact,
		})
	}
}

func openUpload(fh *multipart.FileHeader) (*service.FileUpload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.FileUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

// submitError is the single place submission failures become HTTP responses.
// The full error goes to the operator log; the caller gets the stage and reason only.
func submitError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var se *service.StageError
	if !errors.As(err, &se) {
		log.Error("submission_failed", zap.String("request_id", middleware.GetRequestID(c)), zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, msgFailed, "")
	}

	if se.Stage == service.StageValidation {
		return writeError(c, fiber.StatusBadRequest, msgTextRequired, "")
	}

	log.Error("submission_failed",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("stage", string(se.Stage)),
		zap.String("reason", se.Reason),
		zap.Error(se.Err),
	)
	return writeError(c, fiber.StatusInternalServerError, msgFailed, string(se.Stage)+": "+se.Reason)
}
