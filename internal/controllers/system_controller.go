package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conversly/lead-response/internal/config"
)

type SystemController struct {
	cfg       *config.Config
	providers []string
}

func NewSystemController(cfg *config.Config, providers []string) *SystemController {
	return &SystemController{cfg: cfg, providers: providers}
}

// Status godoc
// @Summary Get system status
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/status [get]
func (s *SystemController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":            s.cfg.ServiceName,
		"version":            "1.0.0",
		"environment":        s.cfg.Environment,
		"hostname":           s.cfg.Hostname,
		"chat_providers":     s.providers,
		"embedding_provider": s.cfg.EmbeddingProvider,
		"sessions":           sessionBackend(s.cfg),
		"timestamp":          time.Now().UTC(),
	})
}

func sessionBackend(cfg *config.Config) string {
	if cfg.RedisURL != "" {
		return "redis"
	}
	return "memory"
}
