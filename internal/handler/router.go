package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the review API under /api/v1.
func NewRouter(svc Service, version string, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	h := NewReviewHandler(svc, logger)
	api := router.Group("/api/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
		})
		api.GET("/entries", h.ListEntries)
		api.GET("/entries/detail", h.GetEntry)
		api.GET("/entries/candidates", h.GetCandidates)
		api.GET("/history", h.GetHistory)
		api.POST("/confirm", h.Confirm)
		api.POST("/correct", h.Correct)
		api.POST("/undo", h.Undo)
	}
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
