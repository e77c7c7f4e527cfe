package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/dayplan-backend/internal/handlers"
	"github.com/yungbote/dayplan-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName     string
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	UserHandler     *handlers.UserHandler
	RoutineHandler  *handlers.RoutineHandler
	TaskHandler     *handlers.TaskHandler
	AutoplanHandler *handlers.AutoplanHandler
	SSEHandler      *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.SSEStream)
	protected.POST("/sse/subscribe", cfg.SSEHandler.SSESubscribe)
	protected.POST("/sse/unsubscribe", cfg.SSEHandler.SSEUnsubscribe)
	// User
	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.PATCH("/user", cfg.UserHandler.UpdateMe)
	// Routine
	protected.GET("/routine", cfg.RoutineHandler.GetRoutine)
	protected.PATCH("/routine", cfg.RoutineHandler.PatchRoutine)
	protected.GET("/routine/steps", cfg.RoutineHandler.ListSteps)
	protected.POST("/routine/steps", cfg.RoutineHandler.AddStep)
	protected.DELETE("/routine/steps/:id", cfg.RoutineHandler.DeleteStep)
	// Tasks
	protected.POST("/tasks", cfg.TaskHandler.Create)
	protected.GET("/tasks/day", cfg.TaskHandler.ListDay)
	protected.GET("/tasks/backlog", cfg.TaskHandler.ListBacklog)
	protected.GET("/tasks/week", cfg.TaskHandler.Week)
	protected.GET("/tasks/:id", cfg.TaskHandler.Get)
	protected.GET("/tasks/:id/slots", cfg.TaskHandler.Slots)
	protected.PATCH("/tasks/:id", cfg.TaskHandler.Patch)
	protected.DELETE("/tasks/:id", cfg.TaskHandler.Delete)
	// Autoplan
	protected.POST("/autoplan", cfg.AutoplanHandler.Autoplan)

	return router
}
