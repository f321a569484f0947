package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prepmetrics/prepmetrics-backend/internal/cache"
	"github.com/prepmetrics/prepmetrics-backend/internal/config"
	"github.com/prepmetrics/prepmetrics-backend/internal/db"
	"github.com/prepmetrics/prepmetrics-backend/internal/handlers"
	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/middleware"
	"github.com/prepmetrics/prepmetrics-backend/internal/repos"
	"github.com/prepmetrics/prepmetrics-backend/internal/server"
	"github.com/prepmetrics/prepmetrics-backend/internal/services"
	"github.com/prepmetrics/prepmetrics-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env + engine config
	log.Info("Loading configuration from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	cfg, err := config.Load(log)
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	goalRepo := repos.NewGoalRepo(thePG, log)
	subjectRepo := repos.NewSubjectRepo(thePG, log)
	topicRepo := repos.NewTopicRepo(thePG, log)
	taskRepo := repos.NewTaskRepo(thePG, log)
	snapshotRepo := repos.NewDailySnapshotRepo(thePG, log)
	idempotencyRepo := repos.NewIdempotencyLogRepo(thePG, log)

	// Cache
	planCache := cache.New(
		time.Duration(cfg.PlanCacheTTLSeconds)*time.Second,
		cfg.PlanCacheEnabled,
		nil,
		log,
	)

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(log, jwtSecretKey)
	planService := services.NewPlanService(thePG, log, goalRepo, taskRepo, cfg.Engine)
	retirementService := services.NewRetirementService(thePG, log, goalRepo, subjectRepo, taskRepo, cfg.Engine)
	applyService := services.NewApplyService(
		thePG,
		log,
		goalRepo,
		topicRepo,
		taskRepo,
		snapshotRepo,
		idempotencyRepo,
		retirementService,
		planCache,
		cfg.Engine,
	)
	quizService := services.NewQuizService(thePG, log, taskRepo, idempotencyRepo, planCache, cfg.Engine)
	analyticsService := services.NewAnalyticsService(thePG, log, goalRepo, taskRepo, snapshotRepo, cfg.Engine)

	// Handlers
	log.Info("Setting up handlers from main...")
	predictHandler := handlers.NewPredictHandler(log, planService, planCache)
	applyHandler := handlers.NewApplyHandler(log, applyService)
	quizHandler := handlers.NewQuizHandler(log, quizService)
	retirementHandler := handlers.NewRetirementHandler(log, retirementService)
	analyticsHandler := handlers.NewAnalyticsHandler(log, analyticsService)
	cacheHandler := handlers.NewCacheHandler(log, planCache)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)
	featureGate := middleware.NewFeatureGate(log, cfg.PredictionEnabled, cfg.WritesEnabled)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:    authMiddleware,
		FeatureGate:       featureGate,
		PredictHandler:    predictHandler,
		ApplyHandler:      applyHandler,
		QuizHandler:       quizHandler,
		RetirementHandler: retirementHandler,
		AnalyticsHandler:  analyticsHandler,
		CacheHandler:      cacheHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
