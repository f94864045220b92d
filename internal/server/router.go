// Package server assembles the HTTP router from the application services.
package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/handler"
	"github.com/noah-isme/lesson-planner-api/internal/middleware"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/config"
	"github.com/noah-isme/lesson-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lesson-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lesson-planner-api/pkg/middleware/requestid"
)

// Services groups everything the router dispatches to.
type Services struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Lessons   *service.LessonPlanService
	Audit     *service.AuditService
	Dashboard *service.DashboardService
	Exports   *service.ExportService
	Metrics   *service.MetricsService
	DB        handler.Pinger
}

// NewRouter builds the gin engine with ops routes at the root and the API
// under cfg.APIPrefix.
func NewRouter(cfg *config.Config, logr *zap.Logger, svcs Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(svcs.Metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	metricsHandler := handler.NewMetricsHandler(svcs.Metrics, svcs.DB)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(svcs.Auth)
	userHandler := handler.NewUserHandler(svcs.Users, svcs.Lessons)
	lessonHandler := handler.NewLessonPlanHandler(svcs.Lessons, svcs.Exports)
	auditHandler := handler.NewAuditHandler(svcs.Audit, svcs.Exports)
	dashboardHandler := handler.NewDashboardHandler(svcs.Dashboard)

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	planners := middleware.RequireRoles(models.RoleAdmin, models.RoleEditor)

	api := r.Group(cfg.APIPrefix)
	api.POST("/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(svcs.Auth))

	secured.GET("/me", authHandler.Me)
	secured.POST("/me/password", authHandler.ChangePassword)

	secured.GET("/users", userHandler.List)
	secured.POST("/users", adminOnly, userHandler.Create)
	secured.DELETE("/users/:id", adminOnly, userHandler.Remove)
	secured.GET("/users/:id/lesson-plans", planners, userHandler.LessonPlans)

	secured.GET("/lesson-plans", lessonHandler.List)
	secured.POST("/lesson-plans", planners, lessonHandler.Create)
	secured.GET("/lesson-plans/mine", lessonHandler.Mine)
	secured.GET("/lesson-plans/export", planners, lessonHandler.Export)
	secured.GET("/lesson-plans/:id", lessonHandler.Get)
	secured.PUT("/lesson-plans/:id", planners, lessonHandler.Update)
	secured.PUT("/lesson-plans/:id/assignees", planners, lessonHandler.Assign)

	secured.GET("/logs", adminOnly, auditHandler.List)
	secured.GET("/logs/export", adminOnly, auditHandler.Export)

	secured.GET("/dashboard/stats", adminOnly, dashboardHandler.Stats)

	return r
}
