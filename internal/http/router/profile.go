package router

import (
	"github.com/gin-gonic/gin"

	"bebusy.app/inbox/internal/http/handler"
)

func ProfileRouter(router *gin.RouterGroup, handler *handler.ProfileHandler) {
	router.GET("/search", handler.Search)
	router.GET("/:id", handler.Get)
}
