package videos

import (
	"github.com/gin-gonic/gin"

	"github.com/dalmia/vidly/api/types"
)

// RegisterRoutes registers video processing routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies, chatMiddleware gin.HandlerFunc) {
	router.POST("/process", Process(deps))
	router.POST("/reset", Reset(deps))
	router.GET("/status", Status(deps))
	router.GET("/sections", Sections(deps))
	router.GET("/transcript", Transcript(deps))
	router.GET("/messages", Messages(deps))
	router.POST("/chat", chatMiddleware, Chat(deps))
}
