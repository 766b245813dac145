package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Conversly/lead-response/internal/api/chatstream"
	"github.com/Conversly/lead-response/internal/api/knowledge"
	"github.com/Conversly/lead-response/internal/api/realtime"
	"github.com/Conversly/lead-response/internal/config"
	"github.com/Conversly/lead-response/internal/controllers"
	"github.com/Conversly/lead-response/internal/middleware"
)

// Dependencies are the wired services behind the HTTP surface. A nil chat
// streamer leaves its provider's route unregistered.
type Dependencies struct {
	Config    *config.Config
	Health    map[string]controllers.Pinger
	OpenAI    chatstream.Streamer
	Gemini    chatstream.Streamer
	Knowledge *knowledge.Service
	Realtime  realtime.Sessions
}

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// Apply global middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(deps.Config.AllowedOrigins))
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())

	var providers []string
	for _, s := range []chatstream.Streamer{deps.OpenAI, deps.Gemini} {
		if s != nil {
			providers = append(providers, s.Provider())
		}
	}

	// Setup route groups
	SetupHealthRoutes(router, deps.Config, deps.Health, providers)
	chatstream.RegisterRoutes(router, deps.OpenAI, deps.Gemini)
	knowledge.RegisterRoutes(router, deps.Knowledge)
	if deps.Realtime != nil {
		realtime.RegisterRoutes(router, deps.Realtime)
	}
	Setup404Handler(router)
}
