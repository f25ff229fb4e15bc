// Package server configures the HTTP server and routes.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/config"
	"github.com/fleveque/sauce-service/internal/handler"
	"github.com/fleveque/sauce-service/internal/metrics"
	"github.com/fleveque/sauce-service/internal/middleware"
	"github.com/fleveque/sauce-service/internal/service"
	"github.com/fleveque/sauce-service/internal/storage"
)

// Deps are the application services the routes need.
// SearchRepo and Metrics may be nil when disabled in config.
type Deps struct {
	SearchService *service.SearchService
	SearchRepo    storage.SearchRepository
	Metrics       *metrics.Recorder
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler()
	searchHandler := handler.NewSearchHandler(deps.SearchService, logger)
	adminHandler := handler.NewAdminHandler(deps.SearchRepo, logger)

	r.GET("/healthz", healthHandler.Healthz)

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	authed := api.Group("")
	authed.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	authed.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		authed.GET("/sources", searchHandler.Sources)
		authed.GET("/sources/:name/check", searchHandler.Check)
		authed.GET("/search", searchHandler.Search)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(cfg.Auth.AdminKeys))
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/searches", adminHandler.Searches)
	}
}
