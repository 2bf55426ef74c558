package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/regionscope/api/handler"
	"github.com/use-agent/regionscope/api/middleware"
	"github.com/use-agent/regionscope/config"
	"github.com/use-agent/regionscope/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestLog → CORS
//	API:     Auth (if enabled) → RateLimit
//
// /, /health and /metrics stay outside auth so probes and scrapers always
// work. ctx bounds the rate limiter's background sweeper.
func NewRouter(ctx context.Context, svc handler.Lookuper, cfg *config.Config, gatherer prometheus.Gatherer) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLog())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost},
		AllowHeaders:    []string{"Content-Type", "Authorization", "X-API-Key"},
		MaxAge:          86400 * time.Second,
	}))

	r.GET("/", handler.Index(scraper.TargetURL, cfg.Lookup.MaxBatch))
	r.GET("/health", handler.Health())
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Protected group: auth + rate limit.
	protected := r.Group("/api")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.GET("/user-region", handler.UserRegion(svc))
	protected.POST("/batch-region", handler.BatchRegion(svc))

	return r
}
