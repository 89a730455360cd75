package handler

import (
	"github.com/gofiber/fiber/v2"

	"reqapi/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
// Detail is an aggregated classification; provider bodies and credentials never go here.
type errorPayload struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - message: human-readable safe message
// - detail: optional machine-readable classification (e.g. "generation: http-error")
func writeError(c *fiber.Ctx, status int, message, detail string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: middleware.GetRequestID(c),
		Error:     message,
		Detail:    detail,
	})
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "bad request", "")
		case fiber.StatusNotFound:
			return writeError(c, status, "resource not found", "")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "method not allowed", "")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "request body too large", "")
		default:
			return writeError(c, status, "internal server error", "")
		}
	}
}
