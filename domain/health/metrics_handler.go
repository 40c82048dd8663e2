package health

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/scheduler"
)

// MetricsHandler reports update journal and scheduler state as JSON.
type MetricsHandler struct {
	db        *bun.DB
	scheduler *scheduler.Scheduler
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(db *bun.DB, s *scheduler.Scheduler) *MetricsHandler {
	return &MetricsHandler{db: db, scheduler: s}
}

// StageCount is the number of journal entries in one stage.
type StageCount struct {
	Stage    string `bun:"stage" json:"stage"`
	Count    int64  `bun:"count" json:"count"`
	LastHour int64  `bun:"last_hour" json:"last_hour"`
}

// JournalMetrics groups the update journal by stage.
func (h *MetricsHandler) JournalMetrics(c echo.Context) error {
	if h.db == nil {
		return echo.NewHTTPError(http.StatusNotFound, "update journal is not persisted")
	}

	var stages []StageCount
	err := h.db.NewSelect().
		TableExpr("kb.update_journal").
		ColumnExpr("stage").
		ColumnExpr("count(*) AS count").
		ColumnExpr("count(*) FILTER (WHERE updated_at > now() - interval '1 hour') AS last_hour").
		GroupExpr("stage").
		OrderExpr("stage").
		Scan(c.Request().Context(), &stages)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"stages":    stages,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SchedulerMetrics lists the registered background tasks.
func (h *MetricsHandler) SchedulerMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"running":   h.scheduler.IsRunning(),
		"tasks":     h.scheduler.ListTasks(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
