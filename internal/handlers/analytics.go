package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/requestdata"
	"github.com/prepmetrics/prepmetrics-backend/internal/services"
)

type AnalyticsHandler struct {
	log          *logger.Logger
	analyticsSvc services.AnalyticsService
}

func NewAnalyticsHandler(log *logger.Logger, analyticsSvc services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		log:          log.With("handler", "AnalyticsHandler"),
		analyticsSvc: analyticsSvc,
	}
}

// GET /api/predict/analytics?goal_id=&days=
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	goalID, err := uuid.Parse(c.Query("goal_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("goal_id must be a uuid"))
		return
	}
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 365 {
			RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("days must be a positive integer up to 365"))
			return
		}
		days = parsed
	}
	ctx := c.Request.Context()
	resp, err := h.analyticsSvc.Dashboard(ctx, requestdata.UserID(ctx), goalID, days)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, resp)
}
