package api

import (
	"slices"
	"time"

	_ "github.com/Sternrassler/topic-repo-search/docs" // swagger spec
	"github.com/Sternrassler/topic-repo-search/pkg/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterConfig holds router options.
type RouterConfig struct {
	// CORSOrigins lists allowed browser origins; "*" allows all.
	CORSOrigins []string

	// Swagger mounts the swagger UI under /swagger.
	Swagger bool
}

// NewRouter wires the handler, middleware and auxiliary endpoints.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestLogger(h.logger))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/repos", h.ListRepositories)
	}

	if cfg.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// requestLogger logs one line per request with zerolog.
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= 500 {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}
