package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepmetrics/prepmetrics-backend/internal/cache"
	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/requestdata"
	"github.com/prepmetrics/prepmetrics-backend/internal/services"
)

type PredictHandler struct {
	log       *logger.Logger
	planSvc   services.PlanService
	planCache *cache.PlanCache
}

func NewPredictHandler(log *logger.Logger, planSvc services.PlanService, planCache *cache.PlanCache) *PredictHandler {
	return &PredictHandler{
		log:       log.With("handler", "PredictHandler"),
		planSvc:   planSvc,
		planCache: planCache,
	}
}

// POST /api/predict/plan
// Simulate today's study plan for a goal. Responses are cached per user,
// goal and request parameters; the cache is skipped when disabled or when no
// authenticated identity is on the context.
func (h *PredictHandler) GeneratePlan(c *gin.Context) {
	var req services.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("invalid request body: %w", err))
		return
	}

	ctx := c.Request.Context()
	rd := requestdata.GetRequestData(ctx)

	var key string
	useCache := h.planCache.Enabled() && rd != nil && rd.UserID != uuid.Nil
	if useCache {
		params := cache.KeyParams{}
		if req.DailyHours != nil {
			params.DailyHours = *req.DailyHours
		}
		if req.SplitNew != nil {
			params.SplitNew = *req.SplitNew
		}
		key = h.planCache.Key(rd.UserID, req.GoalID, params)
		if payload, age, ok := h.planCache.Get(key); ok {
			if cached, valid := payload.(*services.PlanResponse); valid {
				hit := *cached
				hit.CacheHit = true
				hit.CacheAgeSeconds = int(age.Seconds())
				RespondOK(c, &hit)
				return
			}
		}
	}

	resp, err := h.planSvc.GeneratePlan(ctx, requestdata.UserID(ctx), req)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if useCache {
		h.planCache.Put(key, resp)
	}
	RespondOK(c, resp)
}

// GET /api/predict/status?goal_id=
func (h *PredictHandler) GoalStatus(c *gin.Context) {
	goalID, err := uuid.Parse(c.Query("goal_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("goal_id must be a uuid"))
		return
	}
	ctx := c.Request.Context()
	resp, err := h.planSvc.GoalStatus(ctx, requestdata.UserID(ctx), goalID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, resp)
}
