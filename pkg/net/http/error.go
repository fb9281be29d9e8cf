package http

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse provides a consistent error structure for API responses.
type ErrorResponse struct {
	// HTTP status code
	Code int `json:"code"`
	// Error type identifier
	Title string `json:"title"`
	// Human-readable error message
	Message string `json:"message"`
}

// Error allows ErrorResponse to satisfy the error interface.
func (e ErrorResponse) Error() string {
	return e.Message
}

// WriteError writes a structured error response using the ErrorResponse schema.
// This is the canonical way to write error responses and ensures consistency
// across all handlers.
func WriteError(c *fiber.Ctx, status int, title, message string) error {
	return JSONResponse(c, status, ErrorResponse{
		Code:    status,
		Title:   title,
		Message: message,
	})
}

// BadRequestError writes a 400 Bad Request error response.
func BadRequestError(c *fiber.Ctx, title, message string) error {
	return WriteError(c, fiber.StatusBadRequest, title, message)
}

// NotFoundError writes a 404 Not Found error response.
func NotFoundError(c *fiber.Ctx, title, message string) error {
	return WriteError(c, fiber.StatusNotFound, title, message)
}

// InternalServerError writes a 500 Internal Server Error response.
// It always returns a generic message to avoid leaking internal details.
func InternalServerError(c *fiber.Ctx) error {
	return WriteError(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
}

// InternalServerErrorWithTitle writes a 500 Internal Server Error response with a custom title.
// The message is kept generic to avoid leaking internal details.
func InternalServerErrorWithTitle(c *fiber.Ctx, title string) error {
	return WriteError(c, fiber.StatusInternalServerError, title, "internal server error")
}

// ServiceUnavailableError writes a 503 Service Unavailable response.
func ServiceUnavailableError(c *fiber.Ctx, title, message string) error {
	return WriteError(c, fiber.StatusServiceUnavailable, title, message)
}

// RenderError writes all transport errors through a single, stable contract.
func RenderError(ctx *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	var presp *ErrorResponse
	if errors.As(err, &presp) {
		return writeErrorResponse(ctx, *presp)
	}

	var responseErr ErrorResponse
	if errors.As(err, &responseErr) {
		return writeErrorResponse(ctx, responseErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return WriteError(ctx, fiberErr.Code, "request_failed", fiberErr.Message)
	}

	return WriteError(ctx, fiber.StatusInternalServerError, "request_failed", "An internal error occurred")
}

func writeErrorResponse(ctx *fiber.Ctx, resp ErrorResponse) error {
	status := fiber.StatusInternalServerError

	if resp.Code >= http.StatusContinue && resp.Code <= 599 {
		status = resp.Code
	}

	title := resp.Title
	if title == "" {
		title = "request_failed"
	}

	message := resp.Message
	if message == "" {
		message = http.StatusText(status)
	}

	return WriteError(ctx, status, title, message)
}
