package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/requestdata"
	"github.com/prepmetrics/prepmetrics-backend/internal/services"
)

type ApplyHandler struct {
	log      *logger.Logger
	applySvc services.ApplyService
}

func NewApplyHandler(log *logger.Logger, applySvc services.ApplyService) *ApplyHandler {
	return &ApplyHandler{
		log:      log.With("handler", "ApplyHandler"),
		applySvc: applySvc,
	}
}

// POST /api/predict/apply-plan
// Record a studied plan: mastery updates, snapshot, retirement sweep. The
// idempotency key makes retries safe.
func (h *ApplyHandler) ApplyPlan(c *gin.Context) {
	var req services.ApplyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("invalid request body: %w", err))
		return
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}
	ctx := c.Request.Context()
	resp, err := h.applySvc.ApplyPlan(ctx, requestdata.UserID(ctx), req)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, resp)
}
