// Package api is the HTTP surface consumed by the IdeaFlow web UI.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"ideaflow/internal/common/auth"
	"ideaflow/internal/common/logger"
	"ideaflow/internal/workflow"
)

type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string

	Ideas     workflow.IdeaReader
	Evaluator *workflow.Evaluator
	Executor  *workflow.Executor
	Verifier  *auth.Verifier
	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger.WithFields(map[string]interface{}{"component": "http"})
	h := newHandlers(cfg, log)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(corsMiddleware(cfg.AllowedOrigins))
	}
	router.Use(requestLogger(log))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", h.ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/stages", h.stages)

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/ideas/:id")
	protected.Use(requireAuth(cfg.Verifier, log))
	protected.GET("/progression", h.progression)
	protected.GET("/transitions", h.transitions)
	protected.POST("/status", h.changeStatus)

	return router
}
