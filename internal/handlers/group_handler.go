package handlers

import (
	"net/http"

	"github.com/L-Ayim/Vault/internal/dto"
	"github.com/L-Ayim/Vault/internal/middleware"
	"github.com/L-Ayim/Vault/internal/services"
	"github.com/L-Ayim/Vault/pkg/responses"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type GroupHandler struct {
	groups *services.GroupService
}

func NewGroupHandler(groups *services.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	var req dto.CreateGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}

	group, err := h.groups.CreateGroup(c.Request.Context(), userID, req.Name, req.SingleUse, req.MaxInviteUses)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("Group created", group))
}

func (h *GroupHandler) JoinGroup(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	var req dto.JoinGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}

	group, err := h.groups.JoinGroupByInvite(c.Request.Context(), userID, req.InviteCode)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Joined group", group))
}

func (h *GroupHandler) GetGroup(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	groupID, ok := pathUUID(c, "groupId")
	if !ok {
		return
	}
	group, err := h.groups.GetGroup(c.Request.Context(), userID, groupID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", group))
}

func (h *GroupHandler) ListMyGroups(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	limit, offset := pagination(c)
	groups, err := h.groups.ListMyGroups(c.Request.Context(), userID, limit, offset, c.Query("name"))
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", groups))
}

func (h *GroupHandler) ListMembers(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	groupID, ok := pathUUID(c, "groupId")
	if !ok {
		return
	}
	members, err := h.groups.ListGroupMembers(c.Request.Context(), userID, groupID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", members))
}

// RevokeInvite permanently disables the group's invite code.
func (h *GroupHandler) RevokeInvite(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	groupID, ok := pathUUID(c, "groupId")
	if !ok {
		return
	}
	group, err := h.groups.RevokeGroupInvite(c.Request.Context(), userID, groupID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Invite revoked", group))
}

func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	groupID, ok := pathUUID(c, "groupId")
	if !ok {
		return
	}
	if err := h.groups.LeaveGroup(c.Request.Context(), userID, groupID); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Left group", nil))
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	groupID, ok := pathUUID(c, "groupId")
	if !ok {
		return
	}
	memberID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	if err := h.groups.RemoveMember(c.Request.Context(), userID, groupID, memberID); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Member removed", nil))
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid "+name+" format", ""))
		return uuid.Nil, false
	}
	return id, true
}
