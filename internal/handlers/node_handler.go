package handlers

import (
	"net/http"

	"github.com/L-Ayim/Vault/internal/dto"
	"github.com/L-Ayim/Vault/internal/middleware"
	"github.com/L-Ayim/Vault/internal/models"
	"github.com/L-Ayim/Vault/internal/services"
	"github.com/L-Ayim/Vault/pkg/responses"

	"github.com/gin-gonic/gin"
)

type NodeHandler struct {
	nodes *services.NodeService
}

func NewNodeHandler(nodes *services.NodeService) *NodeHandler {
	return &NodeHandler{nodes: nodes}
}

func (h *NodeHandler) Create(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	var req dto.CreateNodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}
	node, err := h.nodes.CreateNode(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("Node created", node))
}

func (h *NodeHandler) Get(c *gin.Context) {
	nodeID, ok := pathUUID(c, "nodeId")
	if !ok {
		return
	}
	node, err := h.nodes.GetNode(c.Request.Context(), principal(c), nodeID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", node))
}

func (h *NodeHandler) Rename(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	nodeID, ok := pathUUID(c, "nodeId")
	if !ok {
		return
	}
	var req dto.RenameNodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}
	node, err := h.nodes.RenameNode(c.Request.Context(), userID, nodeID, req.Name, req.Description)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Node updated", node))
}

func (h *NodeHandler) Delete(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	nodeID, ok := pathUUID(c, "nodeId")
	if !ok {
		return
	}
	if err := h.nodes.DeleteNode(c.Request.Context(), userID, nodeID); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Node deleted", nil))
}

func (h *NodeHandler) ListMine(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	limit, offset := pagination(c)
	nodes, err := h.nodes.ListMyNodes(c.Request.Context(), userID, limit, offset, c.Query("name"))
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", nodes))
}

func (h *NodeHandler) ListPublic(c *gin.Context) {
	limit, offset := pagination(c)
	nodes, err := h.nodes.ListPublicNodes(c.Request.Context(), limit, offset)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", nodes))
}

func (h *NodeHandler) ListFiles(c *gin.Context) {
	nodeID, ok := pathUUID(c, "nodeId")
	if !ok {
		return
	}
	limit, offset := pagination(c)
	nodeFiles, err := h.nodes.ListNodeFiles(c.Request.Context(), principal(c), nodeID, limit, offset)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", nodeFiles))
}

func (h *NodeHandler) AddFile(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	nodeID, ok := pathUUID(c, "nodeId")
	if !ok {
		return
	}
	var req dto.AddFileToNodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}
	nodeFile, err := h.nodes.AddFileToNode(c.Request.Context(), userID, nodeID, req.FileID, req.Note)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("File added to node", nodeFile))
}

func (h *NodeHandler) RemoveFile(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	nodeID, ok := pathUUID(c, "nodeId")
	if !ok {
		return
	}
	fileID, ok := pathUUID(c, "fileId")
	if !ok {
		return
	}
	if err := h.nodes.RemoveFileFromNode(c.Request.Context(), userID, nodeID, fileID); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("File removed from node", nil))
}

func (h *NodeHandler) MoveFile(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	var req dto.MoveFileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}
	err := h.nodes.MoveFileBetweenNodes(c.Request.Context(), userID, req.FromNodeID, req.ToNodeID, req.FileID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("File moved", nil))
}

func (h *NodeHandler) ListEdges(c *gin.Context) {
	nodeID, ok := pathUUID(c, "nodeId")
	if !ok {
		return
	}
	limit, offset := pagination(c)
	edges, err := h.nodes.ListNodeEdges(c.Request.Context(), principal(c), nodeID, limit, offset)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", edges))
}

func (h *NodeHandler) CreateEdge(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	var req dto.CreateEdgeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}
	edge, err := h.nodes.CreateEdge(c.Request.Context(), userID, req.NodeAID, req.NodeBID, req.Label)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("Edge created", edge))
}

func (h *NodeHandler) DeleteEdge(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	edgeID, ok := pathUUID(c, "edgeId")
	if !ok {
		return
	}
	if err := h.nodes.DeleteEdge(c.Request.Context(), userID, edgeID); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Edge deleted", nil))
}

func (h *NodeHandler) Share(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	nodeID, ok := pathUUID(c, "nodeId")
	if !ok {
		return
	}
	var req dto.ShareReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}

	permission := models.AccessLevel(req.Permission)
	var (
		share interface{}
		err   error
	)
	switch {
	case req.Public:
		share, err = h.nodes.MakeNodePublic(c.Request.Context(), userID, nodeID, permission)
	case req.UserID != nil:
		share, err = h.nodes.ShareNodeWithUser(c.Request.Context(), userID, nodeID, *req.UserID, permission)
	case req.GroupID != nil:
		share, err = h.nodes.ShareNodeWithGroup(c.Request.Context(), userID, nodeID, *req.GroupID, permission)
	default:
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Share target required", "set userId, groupId, or public"))
		return
	}
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("Node shared", share))
}

func (h *NodeHandler) UpdateShare(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	shareID, ok := pathUUID(c, "shareId")
	if !ok {
		return
	}
	var req dto.UpdateShareReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}
	share, err := h.nodes.UpdateNodeShare(c.Request.Context(), userID, shareID, models.AccessLevel(req.Permission))
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Share updated", share))
}

func (h *NodeHandler) RevokeShare(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	shareID, ok := pathUUID(c, "shareId")
	if !ok {
		return
	}
	if err := h.nodes.RevokeNodeShare(c.Request.Context(), userID, shareID); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Share revoked", nil))
}

func (h *NodeHandler) ListShares(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	nodeID, ok := pathUUID(c, "nodeId")
	if !ok {
		return
	}
	shares, err := h.nodes.ListNodeShares(c.Request.Context(), userID, nodeID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", shares))
}
