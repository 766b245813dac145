package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conversly/lead-response/internal/api"
)

// Setup404Handler configures the 404 handler
func Setup404Handler(router *gin.Engine) {
	router.NoRoute(func(c *gin.Context) {
		api.Error(c, http.StatusNotFound, api.CodeNotFound, "The requested resource was not found: "+c.Request.URL.Path)
	})
}
