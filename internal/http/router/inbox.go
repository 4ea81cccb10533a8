package router

import (
	"github.com/gin-gonic/gin"

	"bebusy.app/inbox/internal/http/handler"
)

func InboxRouter(router *gin.RouterGroup, handler *handler.InboxHandler) {
	router.GET("", handler.List)
	router.GET("/live", handler.Live)
	router.POST("/read", handler.MarkRead)
}
