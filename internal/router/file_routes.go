package router

import (
	"github.com/L-Ayim/Vault/internal/handlers"

	"github.com/gin-gonic/gin"
)

// FileRoutes registers the authenticated file endpoints. Read
// endpoints on single files live on the optional-auth group so public
// files stay reachable without a token.
func FileRoutes(rg *gin.RouterGroup, h *handlers.FileHandler) {
	files := rg.Group("/files")
	{
		files.POST("", h.Upload)
		files.GET("/mine", h.ListMyFiles)
		files.POST("/:fileId/versions", h.AddVersion)
		files.POST("/:fileId/keep", h.Keep)
		files.PUT("/:fileId", h.Rename)
		files.DELETE("/:fileId", h.Delete)

		files.POST("/:fileId/share", h.Share)
		files.GET("/:fileId/shares", h.ListShares)
		files.PUT("/shares/:shareId", h.UpdateShare)
		files.DELETE("/shares/:shareId", h.RevokeShare)
	}
}
