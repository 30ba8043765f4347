package handlers

import (
	"net/http"

	"github.com/L-Ayim/Vault/internal/dto"
	"github.com/L-Ayim/Vault/internal/middleware"
	"github.com/L-Ayim/Vault/internal/models"
	"github.com/L-Ayim/Vault/internal/services"
	"github.com/L-Ayim/Vault/pkg/responses"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FileHandler struct {
	files *services.FileService
}

func NewFileHandler(files *services.FileService) *FileHandler {
	return &FileHandler{files: files}
}

// principal returns the caller id, or nil for anonymous requests on
// optional-auth routes.
func principal(c *gin.Context) *uuid.UUID {
	if id, ok := middleware.CurrentUserID(c); ok {
		return &id
	}
	return nil
}

// Upload accepts a multipart file and creates it with its initial
// version.
func (h *FileHandler) Upload(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Missing file field", err.Error()))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Failed to read upload", ""))
		return
	}
	defer src.Close()

	name := c.PostForm("name")
	if name == "" {
		name = fileHeader.Filename
	}

	file, version, err := h.files.UploadFile(c.Request.Context(), userID, name, src, fileHeader.Size)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("File uploaded", gin.H{
		"file":    file,
		"version": version,
	}))
}

// AddVersion appends a new version to an owned file.
func (h *FileHandler) AddVersion(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	fileID, ok := pathUUID(c, "fileId")
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Missing file field", err.Error()))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Failed to read upload", ""))
		return
	}
	defer src.Close()

	version, err := h.files.AddFileVersion(c.Request.Context(), userID, fileID, src, fileHeader.Size, c.PostForm("note"))
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("Version added", version))
}

func (h *FileHandler) GetFile(c *gin.Context) {
	fileID, ok := pathUUID(c, "fileId")
	if !ok {
		return
	}
	file, err := h.files.GetFile(c.Request.Context(), principal(c), fileID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", file))
}

// DownloadURL returns a short-lived link to the file's latest content.
func (h *FileHandler) DownloadURL(c *gin.Context) {
	fileID, ok := pathUUID(c, "fileId")
	if !ok {
		return
	}
	url, err := h.files.DownloadURL(c.Request.Context(), principal(c), fileID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", gin.H{"url": url}))
}

func (h *FileHandler) ListVersions(c *gin.Context) {
	fileID, ok := pathUUID(c, "fileId")
	if !ok {
		return
	}
	limit, offset := pagination(c)
	versions, err := h.files.ListVersions(c.Request.Context(), principal(c), fileID, limit, offset)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", versions))
}

// Share creates or updates a grant on an owned file.
func (h *FileHandler) Share(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	fileID, ok := pathUUID(c, "fileId")
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
		share, err = h.files.MakeFilePublic(c.Request.Context(), userID, fileID, permission)
	case req.UserID != nil:
		share, err = h.files.ShareFileWithUser(c.Request.Context(), userID, fileID, *req.UserID, permission)
	case req.GroupID != nil:
		share, err = h.files.ShareFileWithGroup(c.Request.Context(), userID, fileID, *req.GroupID, permission)
	default:
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Share target required", "set userId, groupId, or public"))
		return
	}
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("File shared", share))
}

func (h *FileHandler) UpdateShare(c *gin.Context) {
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
	share, err := h.files.UpdateFileShare(c.Request.Context(), userID, shareID, models.AccessLevel(req.Permission))
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Share updated", share))
}

func (h *FileHandler) RevokeShare(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	shareID, ok := pathUUID(c, "shareId")
	if !ok {
		return
	}
	if err := h.files.RevokeFileShare(c.Request.Context(), userID, shareID); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("Share revoked", nil))
}

func (h *FileHandler) ListShares(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	fileID, ok := pathUUID(c, "fileId")
	if !ok {
		return
	}
	shares, err := h.files.ListFileShares(c.Request.Context(), userID, fileID)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", shares))
}

func (h *FileHandler) ListMyFiles(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	limit, offset := pagination(c)
	files, err := h.files.ListMyFiles(c.Request.Context(), userID, limit, offset, c.Query("name"))
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", files))
}

func (h *FileHandler) ListPublicFiles(c *gin.Context) {
	limit, offset := pagination(c)
	files, err := h.files.ListPublicFiles(c.Request.Context(), limit, offset, c.Query("name"))
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("", files))
}

// Keep copies a readable file into the caller's own collection.
func (h *FileHandler) Keep(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	fileID, ok := pathUUID(c, "fileId")
	if !ok {
		return
	}
	var req dto.KeepFileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}
	file, versions, err := h.files.KeepFile(c.Request.Context(), userID, fileID, c.Query("name"), req.AllVersions)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, responses.NewSuccessResponse("File kept", gin.H{
		"file":     file,
		"versions": versions,
	}))
}

func (h *FileHandler) Rename(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	fileID, ok := pathUUID(c, "fileId")
	if !ok {
		return
	}
	var req dto.RenameFileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewErrorResponse("Invalid request format", err.Error()))
		return
	}
	file, err := h.files.RenameFile(c.Request.Context(), userID, fileID, req.Name)
	if err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("File renamed", file))
}

func (h *FileHandler) Delete(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	fileID, ok := pathUUID(c, "fileId")
	if !ok {
		return
	}
	if err := h.files.DeleteFile(c.Request.Context(), userID, fileID); err != nil {
		responses.FromServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccessResponse("File deleted", nil))
}
