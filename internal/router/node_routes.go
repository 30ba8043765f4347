package router

import (
	"github.com/L-Ayim/Vault/internal/handlers"

	"github.com/gin-gonic/gin"
)

func NodeRoutes(rg *gin.RouterGroup, h *handlers.NodeHandler) {
	nodes := rg.Group("/nodes")
	{
		nodes.POST("", h.Create)
		nodes.GET("/mine", h.ListMine)
		nodes.PUT("/:nodeId", h.Rename)
		nodes.DELETE("/:nodeId", h.Delete)

		nodes.POST("/:nodeId/files", h.AddFile)
		nodes.DELETE("/:nodeId/files/:fileId", h.RemoveFile)
		nodes.POST("/move-file", h.MoveFile)

		nodes.POST("/:nodeId/share", h.Share)
		nodes.GET("/:nodeId/shares", h.ListShares)
		nodes.PUT("/shares/:shareId", h.UpdateShare)
		nodes.DELETE("/shares/:shareId", h.RevokeShare)
	}

	edges := rg.Group("/edges")
	{
		edges.POST("", h.CreateEdge)
		edges.DELETE("/:edgeId", h.DeleteEdge)
	}
}
