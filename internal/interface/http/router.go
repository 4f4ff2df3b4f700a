package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mealsnap/mealsnap/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
		errorHandlingMiddleware(logger),
	)

	api := router.Group("/api/v1")
	{
		api.POST("/sessions", handler.CreateSession)
		api.GET("/sessions/:id", handler.GetSession)

		events := api.Group("/sessions/:id/events")
		{
			events.POST("/start", handler.Intent("start"))
			events.POST("/reset", handler.Intent("reset"))
			events.POST("/retry", handler.Intent("retry"))
			events.POST("/home", handler.Intent("home"))
			events.POST("/back", handler.Intent("back"))
			events.POST("/history", handler.Intent("history"))
			events.POST("/capture", handler.Capture)
			events.POST("/take-photo", handler.TakePhoto)
			events.POST("/toggle-facing", handler.ToggleFacing)
			events.POST("/select", handler.Select)
		}

		api.POST("/sessions/:id/speech", handler.Speech)
		api.GET("/history", handler.ListHistory)
		api.DELETE("/history", handler.ClearHistory)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
