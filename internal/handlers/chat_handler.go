package handlers

import (
	"io"
	"net/http"

	"github.com/L-Ayim/Vault/internal/dto"
	"github.com/L-Ayim/Vault/internal/middleware"
	"github.com/L-Ayim/Vault/internal/services"
	"github.com/L-Ayim/Vault/pkg/responses"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) OpenDirect(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	otherID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	channel, err := h.chat.OpenDirectChannel(c.Request.Context(), userID, otherID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", channel))
}

func (h *ChatHandler) OpenNode(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	nodeID, ok := pathUUID(c, "nodeId")
	if !ok {
		return
	}
	channel, err := h.chat.OpenNodeChannel(c.Request.Context(), userID, nodeID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", channel))
}

func (h *ChatHandler) OpenGroup(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	groupID, ok := pathUUID(c, "groupId")
	if !ok {
		return
	}
	channel, err := h.chat.OpenGroupChannel(c.Request.Context(), userID, groupID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", channel))
}

func (h *ChatHandler) CreatePublic(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	var req dto.CreateChannelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}
	channel, err := h.chat.CreatePublicChannel(c.Request.Context(), userID, req.Name)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("Channel created", channel))
}

func (h *ChatHandler) ListPublic(c *gin.Context) {
	limit, offset := pagination(c)
	channels, err := h.chat.ListPublicChannels(c.Request.Context(), limit, offset, c.Query("name"))
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", channels))
}

func (h *ChatHandler) Join(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	channelID, ok := pathUUID(c, "channelId")
	if !ok {
		return
	}
	channel, err := h.chat.JoinChannel(c.Request.Context(), userID, channelID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Joined channel", channel))
}

func (h *ChatHandler) Leave(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	channelID, ok := pathUUID(c, "channelId")
	if !ok {
		return
	}
	if err := h.chat.LeaveChannel(c.Request.Context(), userID, channelID); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Left channel", nil))
}

// Send posts a message. Multipart requests may carry an attachment
// under the "file" field; plain JSON requests send text only.
func (h *ChatHandler) Send(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	channelID, ok := pathUUID(c, "channelId")
	if !ok {
		return
	}

	var (
		text           string
		attachmentName string
		attachment     io.Reader
		attachmentSize int64
	)

	if fileHeader, err := c.FormFile("file"); err == nil {
		src, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Failed to read attachment", ""))
			return
		}
		defer src.Close()
		attachment = src
		attachmentName = fileHeader.Filename
		attachmentSize = fileHeader.Size
		text = c.PostForm("text")
	} else {
		var req dto.SendMessageReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
			return
		}
		text = req.Text
	}

	message, err := h.chat.SendMessage(c.Request.Context(), userID, channelID, text, attachmentName, attachment, attachmentSize)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("Message sent", message))
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	channelID, ok := pathUUID(c, "channelId")
	if !ok {
		return
	}
	limit, offset := pagination(c)
	messages, err := h.chat.ListChannelMessages(c.Request.Context(), userID, channelID, limit, offset)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", messages))
}

func (h *ChatHandler) ListMine(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	limit, offset := pagination(c)
	listings, err := h.chat.ListMyChannels(c.Request.Context(), userID, limit, offset)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", listings))
}

func (h *ChatHandler) Unread(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	channelID, ok := pathUUID(c, "channelId")
	if !ok {
		return
	}
	count, err := h.chat.UnreadCount(c.Request.Context(), userID, channelID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", gin.H{"unread": count}))
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	channelID, ok := pathUUID(c, "channelId")
	if !ok {
		return
	}
	membership, err := h.chat.MarkChannelRead(c.Request.Context(), userID, channelID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Channel marked read", membership))
}
