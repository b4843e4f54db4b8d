// Package http exposes the opportunity snapshot over a read-only JSON API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/OpportunityRadar/internal/interfaces/http/handlers"
	"github.com/turtacn/OpportunityRadar/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.  Nil handlers leave their routes unregistered.
type RouterConfig struct {
	OpportunityHandler *handlers.OpportunityHandler
	HealthHandler      *handlers.HealthHandler

	// Mode is the gin mode: debug, release or test.
	Mode           string
	CORS           *middleware.CORSConfig
	Logging        middleware.LoggingConfig
	Logger         logging.Logger
	Metrics        *prometheus.RadarMetrics
	MetricsHandler http.Handler
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(cfg.Logger.Named("http"), cfg.Logging))
	r.Use(middleware.Metrics(cfg.Metrics))

	if h := cfg.HealthHandler; h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	registerOpportunityRoutes(api, cfg.OpportunityHandler)

	return r
}

func registerOpportunityRoutes(rg *gin.RouterGroup, h *handlers.OpportunityHandler) {
	if h == nil {
		return
	}
	opp := rg.Group("/opportunities")
	opp.GET("", h.List)
	opp.GET("/:category", h.Get)
}
