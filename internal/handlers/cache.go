package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/prepmetrics/prepmetrics-backend/internal/cache"
	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/requestdata"
)

type CacheHandler struct {
	log       *logger.Logger
	planCache *cache.PlanCache
}

func NewCacheHandler(log *logger.Logger, planCache *cache.PlanCache) *CacheHandler {
	return &CacheHandler{
		log:       log.With("handler", "CacheHandler"),
		planCache: planCache,
	}
}

// GET /api/predict/cache/stats
func (h *CacheHandler) Stats(c *gin.Context) {
	RespondOK(c, h.planCache.Stats())
}

// POST /api/predict/cache/clear
// Clears the caller's own entries; ?all=true drops everything.
func (h *CacheHandler) Clear(c *gin.Context) {
	if c.Query("all") == "true" {
		h.planCache.InvalidateAll()
		RespondOK(c, gin.H{"cleared": "all"})
		return
	}
	userID := requestdata.UserID(c.Request.Context())
	removed := h.planCache.InvalidateUser(userID)
	RespondOK(c, gin.H{"cleared": "user", "entries_removed": removed})
}
