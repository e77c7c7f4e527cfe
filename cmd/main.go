package main

import (
	"context"
	"fmt"
	"os"
	"time"

	redisclient "github.com/yungbote/dayplan-backend/internal/clients/redis"
	"github.com/yungbote/dayplan-backend/internal/db"
	"github.com/yungbote/dayplan-backend/internal/handlers"
	"github.com/yungbote/dayplan-backend/internal/logger"
	"github.com/yungbote/dayplan-backend/internal/middleware"
	"github.com/yungbote/dayplan-backend/internal/observability"
	"github.com/yungbote/dayplan-backend/internal/repos"
	"github.com/yungbote/dayplan-backend/internal/server"
	"github.com/yungbote/dayplan-backend/internal/services"
	"github.com/yungbote/dayplan-backend/internal/sse"
	"github.com/yungbote/dayplan-backend/internal/utils"
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

	// Env
	log.Info("Loading environment variables from main...")
	serviceName := utils.GetEnv("SERVICE_NAME", "dayplan-backend", log)
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	defer func() {
		if otelShutdown != nil {
			_ = otelShutdown(context.Background())
		}
	}()

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
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	routineRepo := repos.NewRoutineRepo(thePG, log)
	routineStepRepo := repos.NewRoutineStepRepo(thePG, log)
	taskRepo := repos.NewTaskRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)

	// Redis plan bus (optional, for multi-instance SSE fanout)
	var planBus redisclient.PlanBus
	if os.Getenv("REDIS_ADDR") != "" {
		planBus, err = redisclient.NewPlanBus(log)
		if err != nil {
			log.Warn("Could not init redis plan bus, events stay local", "error", err)
			planBus = nil
		} else {
			if err := planBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
				log.Warn("Could not start redis forwarder, events stay local", "error", err)
				planBus = nil
			}
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	notifier := services.NewPlanNotifier(log, sseHub, planBus)
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, routineRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	userService := services.NewUserService(thePG, log, userRepo)
	routineService := services.NewRoutineService(thePG, log, routineRepo, routineStepRepo)
	taskService := services.NewTaskService(thePG, log, taskRepo, routineRepo, notifier)
	autoplanService := services.NewAutoplanService(thePG, log, taskRepo, routineRepo, routineStepRepo, notifier)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	routineHandler := handlers.NewRoutineHandler(routineService)
	taskHandler := handlers.NewTaskHandler(taskService)
	autoplanHandler := handlers.NewAutoplanHandler(autoplanService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:     serviceName,
		AuthHandler:     authHandler,
		AuthMiddleware:  authMiddleware,
		UserHandler:     userHandler,
		RoutineHandler:  routineHandler,
		TaskHandler:     taskHandler,
		AutoplanHandler: autoplanHandler,
		SSEHandler:      sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
