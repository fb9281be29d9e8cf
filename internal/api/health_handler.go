package api

import (
	"time"

	"github.com/LerianStudio/payment-engine/pkg/circuitbreaker"
	libHTTP "github.com/LerianStudio/payment-engine/pkg/net/http"
	"github.com/gofiber/fiber/v2"
)

// HealthStatus values reported by the health endpoint.
const (
	HealthStatusHealthy  = "healthy"
	HealthStatusDegraded = "degraded"
)

// BreakerProbe is the view of a circuit breaker the health endpoint reads.
// *circuitbreaker.Breaker satisfies it.
type BreakerProbe interface {
	State() circuitbreaker.State
	Counts() circuitbreaker.Counts
	IsHealthy() bool
}

// DependencyHealth describes one guarded dependency in the health response.
type DependencyHealth struct {
	State               circuitbreaker.State `json:"state"`
	Healthy             bool                 `json:"healthy"`
	Requests            uint32               `json:"requests"`
	TotalFailures       uint32               `json:"total_failures"`
	ConsecutiveFailures uint32               `json:"consecutive_failures"`
}

// HealthResponse is the wire shape of GET /health.
type HealthResponse struct {
	Status        string                      `json:"status"`
	Timestamp     time.Time                   `json:"timestamp"`
	Version       string                      `json:"version"`
	UptimeSeconds float64                     `json:"uptime_seconds"`
	Dependencies  map[string]DependencyHealth `json:"dependencies"`
}

// HealthHandler reports process liveness plus the state of every guarded
// dependency. A breaker that is not closed degrades the overall status.
type HealthHandler struct {
	version   string
	startedAt time.Time
	probes    map[string]BreakerProbe
}

// NewHealthHandler captures the process start time and the dependency probes.
func NewHealthHandler(version string, probes map[string]BreakerProbe) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startedAt: time.Now(),
		probes:    probes,
	}
}

// Check handles GET /health. Degraded state answers 503 so load balancers
// drain the instance while a dependency breaker is open.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	overall := HealthStatusHealthy
	httpStatus := fiber.StatusOK

	dependencies := make(map[string]DependencyHealth, len(h.probes))

	for name, probe := range h.probes {
		counts := probe.Counts()
		healthy := probe.IsHealthy()

		dependencies[name] = DependencyHealth{
			State:               probe.State(),
			Healthy:             healthy,
			Requests:            counts.Requests,
			TotalFailures:       counts.TotalFailures,
			ConsecutiveFailures: counts.ConsecutiveFailures,
		}

		if !healthy {
			overall = HealthStatusDegraded
			httpStatus = fiber.StatusServiceUnavailable
		}
	}

	return libHTTP.JSONResponse(c, httpStatus, HealthResponse{
		Status:        overall,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		Dependencies:  dependencies,
	})
}

// Ping handles GET /ping as a bare liveness probe.
func Ping(c *fiber.Ctx) error {
	return c.SendString("pong")
}

// Version reports the running service version.
func (h *HealthHandler) Version(c *fiber.Ctx) error {
	return libHTTP.OK(c, fiber.Map{
		"version":      h.version,
		"request_date": time.Now().UTC(),
	})
}
