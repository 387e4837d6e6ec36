package dictation

import (
	"github.com/gin-gonic/gin"

	"github.com/dalmia/vidly/api/types"
)

// RegisterRoutes registers the live dictation endpoint
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/ws", Stream(deps))
}
