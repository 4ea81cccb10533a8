package router

import (
	"github.com/gin-gonic/gin"

	"bebusy.app/inbox/internal/http/handler"
)

func NotificationRouter(router *gin.RouterGroup, handler *handler.NotificationHandler) {
	router.GET("", handler.List)
	router.POST("/:id/read", handler.MarkRead)
	router.POST("/read-all", handler.MarkAllRead)
	router.DELETE("/:id", handler.Delete)
}
