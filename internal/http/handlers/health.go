package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/taxdesk/internal/observability"
	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type PoolStatsSource interface {
	Stats() observability.PoolStatsSnapshot
}

type HealthHandler struct {
	db       Pinger
	pool     PoolStatsSource
	draining func() bool
}

// create a new instance of the health handler; draining may be nil
func NewHealthHandler(db Pinger, pool PoolStatsSource, draining func() bool) *HealthHandler {
	if draining == nil {
		draining = func() bool { return false }
	}
	return &HealthHandler{db: db, pool: pool, draining: draining}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports ready only while the database answers a ping and the
// process is not shutting down.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.draining() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	if h.db != nil {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), 1*time.Second)
		defer cancel()

		if err := h.db.Ping(cctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "db": "down"})
			return
		}
	}

	body := gin.H{"status": "ready"}
	if h.pool != nil {
		body["extraction"] = h.pool.Stats()
	}

	ctx.JSON(http.StatusOK, body)
}
