package router

import (
	"github.com/L-Ayim/Vault/internal/handlers"

	"github.com/gin-gonic/gin"
)

func AccountRoutes(rg *gin.RouterGroup, h *handlers.AccountHandler) {
	rg.GET("/me", h.Me)
	rg.PUT("/me/profile", h.UpdateProfile)
	rg.DELETE("/me", h.DeleteAccount)

	invites := rg.Group("/invites")
	{
		invites.POST("", h.CreateInvite)
		invites.GET("", h.ListInvites)
		invites.POST("/redeem", h.RedeemInvite)
		invites.DELETE("/:code", h.RevokeInvite)
	}

	friends := rg.Group("/friends")
	{
		friends.GET("", h.ListFriends)
		friends.DELETE("/:userId", h.Unfriend)
	}
}
