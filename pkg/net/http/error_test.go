//go:build unit

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, app *fiber.App, method, target string) (*http.Response, ErrorResponse) {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, resp.Body.Close()) })

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed ErrorResponse
	require.NoError(t, json.Unmarshal(body, &parsed))

	return resp, parsed
}

func TestWriteError(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return WriteError(c, fiber.StatusBadRequest, "invalid_request", "amount must be positive")
	})

	resp, parsed := performRequest(t, app, http.MethodGet, "/")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, http.StatusBadRequest, parsed.Code)
	assert.Equal(t, "invalid_request", parsed.Title)
	assert.Equal(t, "amount must be positive", parsed.Message)
}

func TestErrorResponseSatisfiesErrorInterface(t *testing.T) {
	err := ErrorResponse{Code: 404, Title: "payment_not_found", Message: "payment not found"}

	assert.Equal(t, "payment not found", err.Error())
}

func TestRenderError_NilIsNoop(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if err := RenderError(c, nil); err != nil {
			return err
		}

		return OK(c, fiber.Map{"ok": true})
	})

	resp, _ := performRequest(t, app, http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRenderError_ErrorResponsePointer(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RenderError(c, &ErrorResponse{
			Code:    fiber.StatusNotFound,
			Title:   "payment_not_found",
			Message: "payment abc not found",
		})
	})

	resp, parsed := performRequest(t, app, http.MethodGet, "/")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "payment_not_found", parsed.Title)
	assert.Equal(t, "payment abc not found", parsed.Message)
}

func TestRenderError_ErrorResponseValue(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RenderError(c, ErrorResponse{
			Code:    fiber.StatusServiceUnavailable,
			Title:   "service_unavailable",
			Message: "risk scoring unavailable",
		})
	})

	resp, parsed := performRequest(t, app, http.MethodGet, "/")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "service_unavailable", parsed.Title)
}

func TestRenderError_InvalidStatusFallsBackTo500(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RenderError(c, &ErrorResponse{Code: 9000})
	})

	resp, parsed := performRequest(t, app, http.MethodGet, "/")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "request_failed", parsed.Title)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), parsed.Message)
}

func TestRenderError_FiberError(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RenderError(c, fiber.NewError(fiber.StatusConflict, "already exists"))
	})

	resp, parsed := performRequest(t, app, http.MethodGet, "/")

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "request_failed", parsed.Title)
	assert.Equal(t, "already exists", parsed.Message)
}

func TestRenderError_OpaqueErrorBecomes500(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RenderError(c, errors.New("boom"))
	})

	resp, parsed := performRequest(t, app, http.MethodGet, "/")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "An internal error occurred", parsed.Message)
}

func TestTypedErrorHelpers(t *testing.T) {
	app := fiber.New()
	app.Get("/bad", func(c *fiber.Ctx) error {
		return BadRequestError(c, "invalid_request", "bad input")
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return NotFoundError(c, "payment_not_found", "no such payment")
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return InternalServerError(c)
	})
	app.Get("/unavailable", func(c *fiber.Ctx) error {
		return ServiceUnavailableError(c, "service_unavailable", "try again later")
	})

	tests := []struct {
		target     string
		wantStatus int
		wantTitle  string
	}{
		{target: "/bad", wantStatus: http.StatusBadRequest, wantTitle: "invalid_request"},
		{target: "/missing", wantStatus: http.StatusNotFound, wantTitle: "payment_not_found"},
		{target: "/internal", wantStatus: http.StatusInternalServerError, wantTitle: "internal_error"},
		{target: "/unavailable", wantStatus: http.StatusServiceUnavailable, wantTitle: "service_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp, parsed := performRequest(t, app, http.MethodGet, tt.target)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantTitle, parsed.Title)
			assert.Equal(t, tt.wantStatus, parsed.Code)
		})
	}
}
