// Package healthhandler exposes liveness and dependency health endpoints.
package healthhandler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"velvet-server/internal/config"
	"velvet-server/internal/interfaces/httpserver/responses"
)

// GenerationHealth reports the generation backend state.
type GenerationHealth interface {
	Health(ctx context.Context) string
}

// StatisticsHealth probes the statistics collaborator with a known series.
type StatisticsHealth interface {
	Health(ctx context.Context, probeCode string) string
}

type Handler struct {
	db         *gorm.DB
	generation GenerationHealth
	statistics StatisticsHealth
	probeCode  string
}

func New(db *gorm.DB, generation GenerationHealth, statistics StatisticsHealth, probeCode string) *Handler {
	return &Handler{db: db, generation: generation, statistics: statistics, probeCode: probeCode}
}

// Live handles GET /healthz. It only proves the process is serving.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetVersion handles GET /version and reports the build version and when the
// environment was loaded.
func (h *Handler) GetVersion(c *gin.Context) {
	payload := gin.H{"version": config.Version}
	if cfg := config.GetGlobal(); cfg != nil {
		payload["env_reloaded_at"] = cfg.EnvReloadedAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, payload)
}

// Health handles GET /health and reports per-dependency status. The overall
// status degrades but the endpoint itself always answers 200, readiness
// decisions belong to the caller.
func (h *Handler) Health(c *gin.Context) {
	services := map[string]string{}

	dbStatus := "healthy"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		dbStatus = "unhealthy"
	}
	services["database"] = dbStatus
	services["generation"] = h.generation.Health(c.Request.Context())
	if h.statistics != nil {
		services["statistics"] = h.statistics.Health(c.Request.Context(), h.probeCode)
	}

	status := "ok"
	for _, s := range services {
		if s != "healthy" {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, responses.Health{
		Status:   status,
		Version:  config.Version,
		Services: services,
	})
}
