package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.Engine, svc Sessions) {
	ctrl := NewController(svc)

	openai := router.Group("/realtime")
	openai.POST("/session", ctrl.OpenAISession)
	openai.POST("/save_conversation", ctrl.SaveConversation)

	gemini := router.Group("/gcs/realtime")
	gemini.POST("/session", ctrl.GeminiSession)
	gemini.POST("/save_conversation", ctrl.SaveConversation)
	gemini.POST("/submit_lead", ctrl.SubmitLead)
	gemini.POST("/search_knowledge", ctrl.SearchKnowledge)
	gemini.POST("/handoff_support", ctrl.HandoffSupport)
	gemini.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gcs-realtime"})
	})
}
