package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/assistant"
	"github.com/unsw-memes/memes/internal/middleware"
	"github.com/unsw-memes/memes/internal/notifications"
	"github.com/unsw-memes/memes/internal/stats"
	"github.com/unsw-memes/memes/internal/users"
)

// UserHandler serves profiles, profile edits, analytics, notifications,
// admin operations and the assistant setup endpoint.
type UserHandler struct {
	users         *users.Service
	stats         *stats.Service
	notifications *notifications.Service
	assistant     *assistant.Service
	logger        *zap.Logger
}

func NewUserHandler(
	usersSvc *users.Service,
	statsSvc *stats.Service,
	notificationsSvc *notifications.Service,
	assistantSvc *assistant.Service,
	logger *zap.Logger,
) *UserHandler {
	return &UserHandler{
		users:         usersSvc,
		stats:         statsSvc,
		notifications: notificationsSvc,
		assistant:     assistantSvc,
		logger:        logger,
	}
}

// Profile handles GET /v1/users/:id
func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	u, err := h.users.Profile(id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// All handles GET /v1/users/all
func (h *UserHandler) All(c *gin.Context) {
	out, err := h.users.All()
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type setNameRequest struct {
	NameFirst string `json:"nameFirst" binding:"required"`
	NameLast  string `json:"nameLast" binding:"required"`
}

// SetName handles PUT /v1/users/me/name
func (h *UserHandler) SetName(c *gin.Context) {
	var req setNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.users.SetName(middleware.GetUserID(c), req.NameFirst, req.NameLast); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type setEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// SetEmail handles PUT /v1/users/me/email
func (h *UserHandler) SetEmail(c *gin.Context) {
	var req setEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.users.SetEmail(middleware.GetUserID(c), req.Email); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type setHandleRequest struct {
	Handle string `json:"handleStr" binding:"required"`
}

// SetHandle handles PUT /v1/users/me/handle
func (h *UserHandler) SetHandle(c *gin.Context) {
	var req setHandleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.users.SetHandle(middleware.GetUserID(c), req.Handle); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type uploadPhotoRequest struct {
	ImgURL string `json:"imgUrl" binding:"required"`
	XStart int    `json:"xStart"`
	YStart int    `json:"yStart"`
	XEnd   int    `json:"xEnd"`
	YEnd   int    `json:"yEnd"`
}

// UploadPhoto handles POST /v1/users/me/photo
func (h *UserHandler) UploadPhoto(c *gin.Context) {
	var req uploadPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.users.UploadPhoto(middleware.GetUserID(c), req.ImgURL, req.XStart, req.YStart, req.XEnd, req.YEnd)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// UserStats handles GET /v1/users/me/stats
func (h *UserHandler) UserStats(c *gin.Context) {
	out, err := h.stats.User(middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userStats": out})
}

// WorkspaceStats handles GET /v1/users/stats
func (h *UserHandler) WorkspaceStats(c *gin.Context) {
	out, err := h.stats.Workspace()
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaceStats": out})
}

// Notifications handles GET /v1/notifications
func (h *UserHandler) Notifications(c *gin.Context) {
	out, err := h.notifications.Get(middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

// AdminRemove handles DELETE /v1/admin/users/:id
func (h *UserHandler) AdminRemove(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.users.AdminRemove(middleware.GetUserID(c), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type permissionRequest struct {
	PermissionID int64 `json:"permissionId" binding:"required"`
}

// AdminSetPermission handles POST /v1/admin/users/:id/permission
func (h *UserHandler) AdminSetPermission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req permissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.users.AdminSetPermission(middleware.GetUserID(c), id, req.PermissionID); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// AssistantCreate handles POST /v1/assistant
func (h *UserHandler) AssistantCreate(c *gin.Context) {
	id, err := h.assistant.Create(middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dmId": id})
}
