package sessions

import (
	"github.com/gin-gonic/gin"

	"github.com/dalmia/vidly/api/types"
)

// RegisterRoutes registers session registry routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
	router.POST("", Create(deps))
	router.GET("/active", Active(deps))
	router.GET("/:id", Get(deps))
	router.PUT("/:id", Rename(deps))
	router.POST("/:id/activate", Activate(deps))
	router.DELETE("/:id", Delete(deps))
}
