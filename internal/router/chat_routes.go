package router

import (
	"github.com/L-Ayim/Vault/internal/handlers"

	"github.com/gin-gonic/gin"
)

func ChatRoutes(rg *gin.RouterGroup, h *handlers.ChatHandler) {
	channels := rg.Group("/channels")
	{
		channels.GET("", h.ListMine)
		channels.POST("/public", h.CreatePublic)
		channels.GET("/public", h.ListPublic)
		channels.POST("/direct/:userId", h.OpenDirect)
		channels.POST("/node/:nodeId", h.OpenNode)
		channels.POST("/group/:groupId", h.OpenGroup)

		channels.POST("/:channelId/join", h.Join)
		channels.POST("/:channelId/leave", h.Leave)
		channels.POST("/:channelId/messages", h.Send)
		channels.GET("/:channelId/messages", h.ListMessages)
		channels.GET("/:channelId/unread", h.Unread)
		channels.POST("/:channelId/read", h.MarkRead)
	}
}
