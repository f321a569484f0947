package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/prepmetrics/prepmetrics-backend/internal/handlers"
	"github.com/prepmetrics/prepmetrics-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware    *middleware.AuthMiddleware
	FeatureGate       *middleware.FeatureGate
	PredictHandler    *handlers.PredictHandler
	ApplyHandler      *handlers.ApplyHandler
	QuizHandler       *handlers.QuizHandler
	RetirementHandler *handlers.RetirementHandler
	AnalyticsHandler  *handlers.AnalyticsHandler
	CacheHandler      *handlers.CacheHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "Idempotency-Key"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	predict := router.Group("/api/predict")
	predict.Use(cfg.AuthMiddleware.RequireAuth())
	predict.Use(cfg.FeatureGate.PredictionRequired())

	// Read surface
	predict.POST("/plan", cfg.PredictHandler.GeneratePlan)
	predict.GET("/status", cfg.PredictHandler.GoalStatus)
	predict.GET("/retirement/stats", cfg.RetirementHandler.Stats)
	predict.GET("/analytics", cfg.AnalyticsHandler.Dashboard)
	predict.GET("/cache/stats", cfg.CacheHandler.Stats)
	predict.POST("/cache/clear", cfg.CacheHandler.Clear)

	// Write surface
	writes := predict.Group("/")
	writes.Use(cfg.FeatureGate.WriteRequired())
	writes.POST("/apply-plan", cfg.ApplyHandler.ApplyPlan)
	writes.POST("/quiz", cfg.QuizHandler.SubmitQuiz)
	writes.POST("/retirement/check", cfg.RetirementHandler.CheckGoal)
	writes.POST("/tasks/:id/reactivate", cfg.RetirementHandler.Reactivate)

	return router
}
