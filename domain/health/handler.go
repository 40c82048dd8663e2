// Package health serves liveness, readiness and Prometheus endpoints.
package health

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/config"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/version"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/kvcache"
)

// Pinger is any collaborator that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// CachePinger probes the shared cache with a read. A miss counts as healthy.
func CachePinger(c kvcache.Cache) Pinger {
	return PingFunc(func(ctx context.Context) error {
		_, err := c.Get(ctx, "health:probe")
		if err == nil || errors.Is(err, kvcache.ErrMiss) {
			return nil
		}
		return err
	})
}

// Dependency is one named readiness check.
type Dependency struct {
	Name   string
	Pinger Pinger
}

// Handler handles health check requests
type Handler struct {
	deps    []Dependency
	cfg     *config.Config
	timeout time.Duration
	startAt time.Time
}

// NewHandler creates a health handler checking deps.
func NewHandler(deps []Dependency, cfg *config.Config) *Handler {
	return &Handler{
		deps:    deps,
		cfg:     cfg,
		timeout: 5 * time.Second,
		startAt: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) check(ctx context.Context) (map[string]Check, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	checks := make(map[string]Check, len(h.deps))
	healthy := true
	for _, d := range h.deps {
		if err := d.Pinger.Ping(ctx); err != nil {
			checks[d.Name] = Check{Status: "unhealthy", Message: err.Error()}
			healthy = false
			continue
		}
		checks[d.Name] = Check{Status: "healthy"}
	}
	return checks, healthy
}

// Health returns the status of every dependency.
func (h *Handler) Health(c echo.Context) error {
	checks, healthy := h.check(c.Request().Context())

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).String(),
		Version:   version.Version,
		Checks:    checks,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

// Healthz returns a simple health check (for k8s liveness probe)
func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready fails while any dependency is unreachable.
func (h *Handler) Ready(c echo.Context) error {
	checks, healthy := h.check(c.Request().Context())
	if !healthy {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"checks": checks,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// Debug returns runtime information outside production.
func (h *Handler) Debug(c echo.Context) error {
	if h.cfg.Environment == "production" {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return c.JSON(http.StatusOK, map[string]any{
		"environment": h.cfg.Environment,
		"go_version":  runtime.Version(),
		"goroutines":  runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc_mb":       mem.Alloc / 1024 / 1024,
			"total_alloc_mb": mem.TotalAlloc / 1024 / 1024,
			"sys_mb":         mem.Sys / 1024 / 1024,
			"num_gc":         mem.NumGC,
		},
		"backends": map[string]any{
			"triplestore": h.cfg.TripleStore.Backend,
			"index":       h.cfg.Index.Backend,
			"cache":       h.cfg.Cache.Backend,
			"database":    h.cfg.Database.Enabled,
		},
	})
}
