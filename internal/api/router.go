// Package api exposes the article read endpoints and config management over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"NewsCollector/internal/domain"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 120 * time.Second
	healthCheckTimeout  = 2 * time.Second
)

// ArticleReader serves incremental and paged article reads.
type ArticleReader interface {
	GetAfter(ctx context.Context, boundID int64, limit int) (domain.ArticlesPage, error)
	GetPage(ctx context.Context, boundID int64, page, count int) (domain.ArticlesPage, error)
}

// ConfigManager validates and stores collector, source and publisher configs.
type ConfigManager interface {
	GetCollectorConfig(ctx context.Context) (json.RawMessage, bool, error)
	SetCollectorConfig(ctx context.Context, raw json.RawMessage) error
	GetSourceConfigs(ctx context.Context) (map[string]domain.SourceConfig, error)
	SetSourceConfigs(ctx context.Context, cfgs map[string]domain.SourceConfig, replaceAll bool) error
	RemoveSourceConfigs(ctx context.Context, names []string) error
	GetPublisherConfig(ctx context.Context) (json.RawMessage, bool, error)
	SetPublisherConfig(ctx context.Context, raw json.RawMessage) error
}

// Deps wires the router. Nil Articles or Configs leave their routes unregistered.
type Deps struct {
	Articles ArticleReader
	Configs  ConfigManager
	Metrics  http.Handler
	Health   func(ctx context.Context) error
	Logger   *slog.Logger
	Debug    bool
}

// Router holds the API dependencies.
type Router struct {
	articles ArticleReader
	configs  ConfigManager
	metrics  http.Handler
	health   func(ctx context.Context) error
	logger   *slog.Logger
	debug    bool
}

// NewRouter creates a new API router.
func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Router{
		articles: deps.Articles,
		configs:  deps.Configs,
		metrics:  deps.Metrics,
		health:   deps.Health,
		logger:   deps.Logger,
		debug:    deps.Debug,
	}
}

// Engine builds the gin engine with every route registered.
func (r *Router) Engine() *gin.Engine {
	if !r.debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(r.logger))

	engine.GET("/healthz", r.healthz)
	if r.metrics != nil {
		engine.GET("/metrics", gin.WrapH(r.metrics))
	}

	if r.articles != nil {
		articles := engine.Group("/articles")
		articles.GET("/after", r.getArticlesAfter)
		articles.GET("/page", r.getArticlesPage)
	}

	if r.configs != nil {
		configs := engine.Group("/configs")
		configs.GET("/collector", r.getCollectorConfig)
		configs.POST("/collector", r.setCollectorConfig)
		configs.GET("/sources", r.getSourceConfigs)
		configs.POST("/sources", r.setSourceConfigs)
		configs.PUT("/sources", r.resetSourceConfigs)
		configs.DELETE("/sources", r.deleteSourceConfigs)
		configs.GET("/publisher", r.getPublisherConfig)
		configs.POST("/publisher", r.setPublisherConfig)
	}

	return engine
}

// NewServer wraps the engine in an http.Server listening on addr.
func (r *Router) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}
}

func (r *Router) healthz(c *gin.Context) {
	if r.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
