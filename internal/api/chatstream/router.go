package chatstream

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the chat stream of each configured provider.
// A nil streamer leaves its route unregistered.
func RegisterRoutes(router *gin.Engine, openai, gemini Streamer) {
	if openai != nil {
		router.POST("/standard/chat", NewController(openai).Chat)
	}
	if gemini != nil {
		router.POST("/gcs/standard/chat", NewController(gemini).Chat)
	}
}
