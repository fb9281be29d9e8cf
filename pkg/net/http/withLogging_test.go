//go:build unit

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LerianStudio/payment-engine/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithHTTPLogging_GeneratesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(WithHTTPLogging(WithCustomLogger(&log.NoneLogger{})))
	app.Get("/payments", func(c *fiber.Ctx) error {
		return OK(c, fiber.Map{"items": []string{}})
	})

	req := httptest.NewRequest(http.MethodGet, "/payments", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { require.NoError(t, resp.Body.Close()) }()

	got := resp.Header.Get(HeaderID)
	require.NotEmpty(t, got)

	_, parseErr := uuid.Parse(got)
	assert.NoError(t, parseErr, "generated request id should be a UUID")
}

func TestWithHTTPLogging_PreservesInboundRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(WithHTTPLogging(WithCustomLogger(&log.NoneLogger{})))
	app.Get("/payments", func(c *fiber.Ctx) error {
		return OK(c, fiber.Map{"items": []string{}})
	})

	req := httptest.NewRequest(http.MethodGet, "/payments", nil)
	req.Header.Set(HeaderID, "client-supplied-id")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { require.NoError(t, resp.Body.Close()) }()

	assert.Equal(t, "client-supplied-id", resp.Header.Get(HeaderID))
}

func TestWithHTTPLogging_InjectsContextLoggerAndRequestID(t *testing.T) {
	var (
		gotLogger    log.Logger
		gotRequestID string
	)

	app := fiber.New()
	app.Use(WithHTTPLogging(WithCustomLogger(&log.NoneLogger{})))
	app.Get("/payments", func(c *fiber.Ctx) error {
		gotLogger = log.NewLoggerFromContext(c.UserContext())
		gotRequestID = log.NewRequestIDFromContext(c.UserContext())

		return OK(c, fiber.Map{"items": []string{}})
	})

	req := httptest.NewRequest(http.MethodGet, "/payments", nil)
	req.Header.Set(HeaderID, "req-777")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { require.NoError(t, resp.Body.Close()) }()

	assert.NotNil(t, gotLogger)
	assert.Equal(t, "req-777", gotRequestID)
}

func TestWithHTTPLogging_SkipsHealthEndpoints(t *testing.T) {
	app := fiber.New()
	app.Use(WithHTTPLogging(WithCustomLogger(&log.NoneLogger{})))
	app.Get("/health", func(c *fiber.Ctx) error {
		return OK(c, fiber.Map{"status": "healthy"})
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { require.NoError(t, resp.Body.Close()) }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(HeaderID), "health probes bypass request id tagging")
}

func TestRequestInfoCLFString(t *testing.T) {
	info := &RequestInfo{
		RemoteAddress: "10.0.0.1",
		Protocol:      "http",
		Date:          time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Method:        http.MethodPost,
		URI:           "/payments",
		Status:        201,
		Size:          128,
		Referer:       "-",
		UserAgent:     "integration-probe",
	}

	line := info.CLFString()

	assert.Contains(t, line, "10.0.0.1")
	assert.Contains(t, line, `"POST /payments"`)
	assert.Contains(t, line, "201 128")
	assert.Contains(t, line, "integration-probe")
	assert.Equal(t, line, info.String())
}

func TestRequestInfoFinishComputesDuration(t *testing.T) {
	info := &RequestInfo{Date: time.Now().UTC().Add(-50 * time.Millisecond)}

	info.FinishRequestInfo(200, 64)

	assert.Equal(t, 200, info.Status)
	assert.Equal(t, 64, info.Size)
	assert.GreaterOrEqual(t, info.Duration, 50*time.Millisecond)
}

func TestBuildOptsDefaultsToGoLogger(t *testing.T) {
	mid := buildOpts()

	require.NotNil(t, mid.Logger)
	assert.IsType(t, &log.GoLogger{}, mid.Logger)
}

func TestWithCustomLoggerIgnoresNil(t *testing.T) {
	mid := buildOpts(WithCustomLogger(nil))

	assert.IsType(t, &log.GoLogger{}, mid.Logger)
}
