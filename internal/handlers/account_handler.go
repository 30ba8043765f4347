package handlers

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/L-Ayim/Vault/internal/auth"
	"github.com/L-Ayim/Vault/internal/dto"
	"github.com/L-Ayim/Vault/internal/middleware"
	"github.com/L-Ayim/Vault/internal/models"
	"github.com/L-Ayim/Vault/internal/services"
	"github.com/L-Ayim/Vault/pkg/responses"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultTokenTTL = 24 * time.Hour

type AccountHandler struct {
	accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func tokenTTL() time.Duration {
	if raw := os.Getenv("ACCESS_TOKEN_TTL_HOURS"); raw != "" {
		if hours, err := strconv.Atoi(raw); err == nil && hours > 0 {
			return time.Duration(hours) * time.Hour
		}
	}
	return defaultTokenTTL
}

// Register creates an account and returns the user plus an access
// token.
func (h *AccountHandler) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}

	user, err := h.accounts.RegisterUser(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, tokenTTL())
	if err != nil {
		c.JSON(http.StatusInternalServerError, responses.NewErrorResponse("Failed to issue token", ""))
		return
	}

	c.JSON(http.StatusCreated, responses.NewSuccessResponse("Account created", gin.H{
		"user":  user,
		"token": token,
	}))
}

// Login verifies credentials and returns an access token.
func (h *AccountHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, tokenTTL())
	if err != nil {
		c.JSON(http.StatusInternalServerError, responses.NewErrorResponse("Failed to issue token", ""))
		return
	}

	c.JSON(http.StatusOK, responses.NewSuccessResponse("Logged in", gin.H{
		"user":  user,
		"token": token,
	}))
}

// Me returns the caller's account and profile.
func (h *AccountHandler) Me(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	user, err := h.accounts.GetUser(c.Request.Context(), userID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	profile, err := h.accounts.GetProfile(c.Request.Context(), userID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", gin.H{
		"user":    user,
		"profile": profile,
	}))
}

// UpdateProfile patches the caller's profile.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	var req dto.UpdateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}

	profile, err := h.accounts.UpdateProfile(c.Request.Context(), userID, services.UpdateProfileParams{
		AvatarFileID: req.AvatarFileID,
		AvatarURL:    req.AvatarURL,
		Bio:          req.Bio,
		Preferences:  req.Preferences,
	})
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Profile updated", profile))
}

// DeleteAccount removes the caller's account and everything it owns.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	if err := h.accounts.DeleteUser(c.Request.Context(), userID); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Account deleted", nil))
}

// CreateInvite issues a friend-invite code.
func (h *AccountHandler) CreateInvite(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	var req dto.CreateInviteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}

	invite, err := h.accounts.CreateFriendInvite(c.Request.Context(), userID, models.CodeType(req.CodeType), req.MaxUses, req.ExpiresAt)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("Invite created", invite))
}

// RedeemInvite consumes a friend-invite code and befriends the
// creator.
func (h *AccountHandler) RedeemInvite(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	var req dto.RedeemInviteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}

	friend, err := h.accounts.RedeemFriendInvite(c.Request.Context(), userID, req.Code)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Invite redeemed", friend))
}

// RevokeInvite disables one of the caller's invite codes.
func (h *AccountHandler) RevokeInvite(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	code := c.Param("code")
	if err := h.accounts.RevokeFriendInvite(c.Request.Context(), userID, code); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Invite revoked", nil))
}

// ListInvites returns currently redeemable invites.
func (h *AccountHandler) ListInvites(c *gin.Context) {
	invites, err := h.accounts.ListActiveInvites(c.Request.Context())
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", invites))
}

// ListFriends returns the caller's friends.
func (h *AccountHandler) ListFriends(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	limit, offset := pagination(c)
	friends, err := h.accounts.ListFriends(c.Request.Context(), userID, limit, offset, c.Query("username"))
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", friends))
}

// Unfriend removes a friendship in both directions.
func (h *AccountHandler) Unfriend(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	friendID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid user ID format", ""))
		return
	}
	if err := h.accounts.Unfriend(c.Request.Context(), userID, friendID); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Friend removed", nil))
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
