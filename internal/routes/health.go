package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Conversly/lead-response/internal/config"
	"github.com/Conversly/lead-response/internal/controllers"
)

// SetupHealthRoutes configures health, status and metrics endpoints
func SetupHealthRoutes(router *gin.Engine, cfg *config.Config, deps map[string]controllers.Pinger, providers []string) {
	healthController := controllers.NewHealthController(deps)
	systemController := controllers.NewSystemController(cfg, providers)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	router.GET("/health", healthController.HealthCheck)
	router.GET("/health/live", healthController.Liveness)
	router.GET("/health/ready", healthController.Readiness)
	router.GET("/api/v1/status", systemController.Status)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
