package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MountHealthRoutes registers /health/live and /health/ready.
func MountHealthRoutes(router gin.IRouter, logger *zap.Logger, database Pinger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	router.GET("/health/live", func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/health/ready", func(contextGin *gin.Context) {
		if err := database.Ping(contextGin.Request.Context()); err != nil {
			logger.Warn("readiness check failed",
				zap.String("code", "health.ready.database"),
				zap.Error(err))
			contextGin.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
