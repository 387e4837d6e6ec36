package playback

import (
	"github.com/gin-gonic/gin"

	"github.com/dalmia/vidly/api/types"
)

// RegisterRoutes registers playback sync routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("/position", Position(deps))
}
