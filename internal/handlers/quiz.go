package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/requestdata"
	"github.com/prepmetrics/prepmetrics-backend/internal/services"
)

type QuizHandler struct {
	log     *logger.Logger
	quizSvc services.QuizService
}

func NewQuizHandler(log *logger.Logger, quizSvc services.QuizService) *QuizHandler {
	return &QuizHandler{
		log:     log.With("handler", "QuizHandler"),
		quizSvc: quizSvc,
	}
}

// POST /api/predict/quiz
// Fold a quiz result into the task's Beta posterior.
func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	var req services.QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("invalid request body: %w", err))
		return
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}
	ctx := c.Request.Context()
	resp, err := h.quizSvc.SubmitQuiz(ctx, requestdata.UserID(ctx), req)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, resp)
}
