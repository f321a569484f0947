package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/requestdata"
	"github.com/prepmetrics/prepmetrics-backend/internal/services"
)

type RetirementHandler struct {
	log           *logger.Logger
	retirementSvc services.RetirementService
}

func NewRetirementHandler(log *logger.Logger, retirementSvc services.RetirementService) *RetirementHandler {
	return &RetirementHandler{
		log:           log.With("handler", "RetirementHandler"),
		retirementSvc: retirementSvc,
	}
}

// POST /api/predict/retirement/check?goal_id=
// Run the coverage sweep; re-running is a no-op once retired.
func (h *RetirementHandler) CheckGoal(c *gin.Context) {
	goalID, err := uuid.Parse(c.Query("goal_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("goal_id must be a uuid"))
		return
	}
	ctx := c.Request.Context()
	retired, err := h.retirementSvc.CheckGoal(ctx, nil, requestdata.UserID(ctx), goalID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"goal_id": goalID, "retired_subjects": retired})
}

// POST /api/predict/tasks/:id/reactivate
func (h *RetirementHandler) Reactivate(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("task id must be a uuid"))
		return
	}
	ctx := c.Request.Context()
	resp, err := h.retirementSvc.Reactivate(ctx, requestdata.UserID(ctx), taskID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, resp)
}

// GET /api/predict/retirement/stats?goal_id=
func (h *RetirementHandler) Stats(c *gin.Context) {
	goalID, err := uuid.Parse(c.Query("goal_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("goal_id must be a uuid"))
		return
	}
	ctx := c.Request.Context()
	resp, err := h.retirementSvc.Stats(ctx, requestdata.UserID(ctx), goalID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, resp)
}
