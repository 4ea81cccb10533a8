package router

import (
	"github.com/gin-gonic/gin"

	"bebusy.app/inbox/internal/http/handler"
	"bebusy.app/inbox/internal/http/middleware"
)

type Handlers struct {
	Inbox         *handler.InboxHandler
	Messages      *handler.MessageHandler
	Notifications *handler.NotificationHandler
	Profiles      *handler.ProfileHandler
}

func SetupRoutes(router *gin.Engine, handlers Handlers) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireUser())
	{
		InboxRouter(v1.Group("/inbox"), handlers.Inbox)
		MessageRouter(v1, handlers.Messages)
		NotificationRouter(v1.Group("/notifications"), handlers.Notifications)
		ProfileRouter(v1.Group("/profiles"), handlers.Profiles)
	}
}
