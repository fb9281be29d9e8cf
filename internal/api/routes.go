package api

import (
	"context"

	"github.com/LerianStudio/payment-engine/pkg/log"
	libHTTP "github.com/LerianStudio/payment-engine/pkg/net/http"
	"github.com/LerianStudio/payment-engine/pkg/opentelemetry"
	"github.com/LerianStudio/payment-engine/pkg/runtime"
	"github.com/gofiber/fiber/v2"
	recoverMW "github.com/gofiber/fiber/v2/middleware/recover"
)

// NewRouter assembles the fiber application: panic recovery, CORS, request
// logging with correlation ids, telemetry, and the engine's routes.
func NewRouter(
	logger log.Logger,
	telemetry *opentelemetry.Telemetry,
	payments *PaymentHandler,
	health *HealthHandler,
) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          newErrorHandler(logger),
	})

	app.Use(recoverMW.New(recoverMW.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, r any) {
			runtime.HandlePanicValue(c.UserContext(), logger, r, "api", "http_handler")
		},
	}))

	app.Use(libHTTP.WithCORS())
	app.Use(libHTTP.WithHTTPLogging(libHTTP.WithCustomLogger(logger)))

	if telemetry != nil {
		tm := libHTTP.NewTelemetryMiddleware(telemetry)
		app.Use(tm.WithTelemetry(telemetry, "/health", "/ping"))
	}

	app.Post("/payments", payments.Create)
	app.Get("/payments/:id", payments.GetByID)
	app.Get("/payments", payments.List)

	app.Get("/health", health.Check)
	app.Get("/version", health.Version)
	app.Get("/ping", Ping)

	return app
}

// newErrorHandler renders every unhandled transport error through the shared
// ErrorResponse schema instead of fiber's default text body.
func newErrorHandler(logger log.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}

		requestLogger := log.NewLoggerFromContext(ctx)
		if _, isNone := requestLogger.(*log.NoneLogger); isNone && logger != nil {
			requestLogger = logger
		}

		requestLogger.Errorf("handler error: method=%s path=%s error=%v", c.Method(), c.Path(), err)

		return libHTTP.RenderError(c, err)
	}
}
