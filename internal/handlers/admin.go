package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AmitJPatil13/ESahayak-Task/internal/ratelimit"
	"github.com/AmitJPatil13/ESahayak-Task/internal/scheduler"
	"github.com/AmitJPatil13/ESahayak-Task/internal/store"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	store     store.Store
	scheduler *scheduler.Scheduler
	limiter   *ratelimit.RateLimiter
	log       *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(st store.Store, sched *scheduler.Scheduler, limiter *ratelimit.RateLimiter, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{
		store:     st,
		scheduler: sched,
		limiter:   limiter,
		log:       log,
	}
}

// GetStats returns dataset statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetRateLimitStats returns current limiter usage
func (h *AdminHandler) GetRateLimitStats(c *gin.Context) {
	if h.limiter == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, h.limiter.GetStats())
}

// TriggerReindex manually rebuilds the search index
func (h *AdminHandler) TriggerReindex(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Search indexing is not configured",
		})
		return
	}

	h.log.Info("admin: manual reindex requested")

	count, err := h.scheduler.RunNow(c.Request.Context())
	if err != nil {
		h.log.Error("admin: manual reindex failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reindex failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reindex completed",
		"indexed": count,
	})
}
