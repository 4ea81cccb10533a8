package router

import (
	"github.com/gin-gonic/gin"

	"bebusy.app/inbox/internal/http/handler"
)

func MessageRouter(router *gin.RouterGroup, handler *handler.MessageHandler) {
	router.POST("/messages", handler.Send)
	router.GET("/messages", handler.History)
	router.DELETE("/messages/:id", handler.Delete)
	router.GET("/messages/search", handler.Search)
	router.POST("/conversations", handler.OpenConversation)
	router.GET("/groups/:id", handler.GetGroup)
}
