package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/LerianStudio/payment-engine/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderID is the request identifier header key.
const HeaderID = "X-Request-Id"

// RequestInfo is a struct designed to store http access log data.
type RequestInfo struct {
	Method        string
	URI           string
	Referer       string
	RemoteAddress string
	Status        int
	Date          time.Time
	Duration      time.Duration
	UserAgent     string
	RequestID     string
	Protocol      string
	Size          int
}

// NewRequestInfo creates an instance of RequestInfo.
func NewRequestInfo(c *fiber.Ctx) *RequestInfo {
	referer := "-"
	if c.Get(fiber.HeaderReferer) != "" {
		referer = c.Get(fiber.HeaderReferer)
	}

	return &RequestInfo{
		RequestID:     c.Get(HeaderID),
		Method:        c.Method(),
		URI:           c.OriginalURL(),
		Referer:       referer,
		UserAgent:     c.Get(fiber.HeaderUserAgent),
		RemoteAddress: c.IP(),
		Protocol:      c.Protocol(),
		Date:          time.Now().UTC(),
	}
}

// CLFString produces a log entry format similar to Common Log Format (CLF)
// Ref: https://httpd.apache.org/docs/trunk/logs.html#common
func (r *RequestInfo) CLFString() string {
	return strings.Join([]string{
		r.RemoteAddress,
		"-",
		r.Protocol,
		r.Date.Format("[02/Jan/2006:15:04:05 -0700]"),
		`"` + r.Method + " " + r.URI + `"`,
		strconv.Itoa(r.Status),
		strconv.Itoa(r.Size),
		r.Referer,
		r.UserAgent,
	}, " ")
}

// String implements the fmt.Stringer interface using RequestInfo.CLFString.
func (r *RequestInfo) String() string {
	return r.CLFString()
}

// FinishRequestInfo calculates the duration of RequestInfo automatically using
// time.Now() and records the response status and size.
func (r *RequestInfo) FinishRequestInfo(status, size int) {
	r.Duration = time.Now().UTC().Sub(r.Date)
	r.Status = status
	r.Size = size
}

type logMiddleware struct {
	Logger log.Logger
}

// LogMiddlewareOption represents the log middleware function as an implementation.
type LogMiddlewareOption func(l *logMiddleware)

// WithCustomLogger is a functional option for logMiddleware.
func WithCustomLogger(logger log.Logger) LogMiddlewareOption {
	return func(l *logMiddleware) {
		if logger != nil {
			l.Logger = logger
		}
	}
}

// buildOpts creates an instance of logMiddleware with options.
func buildOpts(opts ...LogMiddlewareOption) *logMiddleware {
	mid := &logMiddleware{
		Logger: &log.GoLogger{Level: log.InfoLevel},
	}

	for _, opt := range opts {
		opt(mid)
	}

	return mid
}

// WithHTTPLogging is a middleware to log access to the http server.
// It tags every request with an X-Request-Id, stores a request-scoped logger
// in the request context, and emits access logs according to Apache Common
// Log Format (CLF).
// Ref: https://httpd.apache.org/docs/trunk/logs.html#common
func WithHTTPLogging(opts ...LogMiddlewareOption) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" || c.Path() == "/ping" {
			return c.Next()
		}

		setRequestHeaderID(c)

		info := NewRequestInfo(c)

		mid := buildOpts(opts...)
		logger := mid.Logger.WithFields("request_id", info.RequestID)

		ctx := log.ContextWithLogger(c.UserContext(), logger)
		c.SetUserContext(ctx)

		err := c.Next()

		info.FinishRequestInfo(c.Response().StatusCode(), len(c.Response().Body()))

		logger.Info(info.CLFString())

		return err
	}
}

// setRequestHeaderID propagates the inbound request id, generating a fresh
// one when the caller did not send any.
func setRequestHeaderID(c *fiber.Ctx) {
	headerID := c.Get(HeaderID)

	if strings.TrimSpace(headerID) == "" {
		headerID = uuid.New().String()
		c.Request().Header.Set(HeaderID, headerID)
	}

	c.Response().Header.Set(HeaderID, headerID)

	ctx := log.ContextWithRequestID(c.UserContext(), headerID)
	c.SetUserContext(ctx)
}
