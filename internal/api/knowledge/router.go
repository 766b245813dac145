package knowledge

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.Engine, svc *Service) {
	ctrl := NewController(svc)

	router.POST("/standard/set_user_assistant", ctrl.SetUserAssistant)

	group := router.Group("/api")
	group.POST("/ingest", ctrl.Ingest)
	group.GET("/training_status/:chatbot_id", ctrl.TrainingStatus)
	group.POST("/delete_source", ctrl.DeleteSource)
}
