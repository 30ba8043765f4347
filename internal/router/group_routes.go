package router

import (
	"github.com/L-Ayim/Vault/internal/handlers"

	"github.com/gin-gonic/gin"
)

func GroupRoutes(rg *gin.RouterGroup, h *handlers.GroupHandler) {
	groups := rg.Group("/groups")
	{
		groups.POST("", h.CreateGroup)
		groups.GET("", h.ListMyGroups)
		groups.POST("/join", h.JoinGroup)
		groups.GET("/:groupId", h.GetGroup)
		groups.GET("/:groupId/members", h.ListMembers)
		groups.POST("/:groupId/invite/revoke", h.RevokeInvite)
		groups.POST("/:groupId/leave", h.LeaveGroup)
		groups.DELETE("/:groupId/members/:userId", h.RemoveMember)
	}
}
