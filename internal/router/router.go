package router

import (
	"github.com/L-Ayim/Vault/internal/handlers"
	"github.com/L-Ayim/Vault/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter mounts all API routes under /api/v1. Public listings get
// optional auth so anonymous callers see only public grants; everything
// else requires a token.
func SetupRouter(
	router *gin.Engine,
	db *gorm.DB,
	accountHandler *handlers.AccountHandler,
	groupHandler *handlers.GroupHandler,
	fileHandler *handlers.FileHandler,
	nodeHandler *handlers.NodeHandler,
	chatHandler *handlers.ChatHandler,
) {
	v1 := router.Group("/api/v1")

	v1.POST("/auth/register", accountHandler.Register)
	v1.POST("/auth/login", accountHandler.Login)

	public := v1.Group("/")
	public.Use(middleware.OptionalAuthMiddleware(db))
	{
		public.GET("/files/public", fileHandler.ListPublicFiles)
		public.GET("/files/:fileId", fileHandler.GetFile)
		public.GET("/files/:fileId/download", fileHandler.DownloadURL)
		public.GET("/files/:fileId/versions", fileHandler.ListVersions)
		public.GET("/nodes/public", nodeHandler.ListPublic)
		public.GET("/nodes/:nodeId", nodeHandler.Get)
		public.GET("/nodes/:nodeId/files", nodeHandler.ListFiles)
		public.GET("/nodes/:nodeId/edges", nodeHandler.ListEdges)
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(db))

	AccountRoutes(protected, accountHandler)
	GroupRoutes(protected, groupHandler)
	FileRoutes(protected, fileHandler)
	NodeRoutes(protected, nodeHandler)
	ChatRoutes(protected, chatHandler)
}
