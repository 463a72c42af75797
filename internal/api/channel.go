package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/channels"
	"github.com/unsw-memes/memes/internal/messages"
	"github.com/unsw-memes/memes/internal/middleware"
)

// ChannelHandler serves channel lifecycle, membership and channel messages.
type ChannelHandler struct {
	channels *channels.Service
	messages *messages.Service
	logger   *zap.Logger
}

func NewChannelHandler(channelsSvc *channels.Service, messagesSvc *messages.Service, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{channels: channelsSvc, messages: messagesSvc, logger: logger}
}

type createChannelRequest struct {
	Name     string `json:"name" binding:"required"`
	IsPublic bool   `json:"isPublic"`
}

// Create handles POST /v1/channels
func (h *ChannelHandler) Create(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.channels.Create(middleware.GetUserID(c), req.Name, req.IsPublic)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channelId": id})
}

// List handles GET /v1/channels/list
func (h *ChannelHandler) List(c *gin.Context) {
	out, err := h.channels.ListJoined(middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": out})
}

// ListAll handles GET /v1/channels/listall
func (h *ChannelHandler) ListAll(c *gin.Context) {
	out, err := h.channels.ListAll(middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": out})
}

// Details handles GET /v1/channels/:id/details
func (h *ChannelHandler) Details(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	det, err := h.channels.Details(middleware.GetUserID(c), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, det)
}

// Join handles POST /v1/channels/:id/join
func (h *ChannelHandler) Join(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.channels.Join(middleware.GetUserID(c), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type targetUserRequest struct {
	UID int64 `json:"uId" binding:"required"`
}

// Invite handles POST /v1/channels/:id/invite
func (h *ChannelHandler) Invite(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req targetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.channels.Invite(middleware.GetUserID(c), id, req.UID); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Leave handles POST /v1/channels/:id/leave
func (h *ChannelHandler) Leave(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.channels.Leave(middleware.GetUserID(c), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// AddOwner handles POST /v1/channels/:id/addowner
func (h *ChannelHandler) AddOwner(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req targetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.channels.AddOwner(middleware.GetUserID(c), id, req.UID); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// RemoveOwner handles POST /v1/channels/:id/removeowner
func (h *ChannelHandler) RemoveOwner(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req targetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.channels.RemoveOwner(middleware.GetUserID(c), id, req.UID); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Messages handles GET /v1/channels/:id/messages?start=N
func (h *ChannelHandler) Messages(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	start, err := strconv.Atoi(c.DefaultQuery("start", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start"})
		return
	}
	page, err := h.channels.Messages(middleware.GetUserID(c), id, start)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type sendRequest struct {
	Message string `json:"message" binding:"required"`
}

// Send handles POST /v1/channels/:id/messages
func (h *ChannelHandler) Send(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mid, err := h.messages.Send(middleware.GetUserID(c), id, req.Message)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messageId": mid})
}

type sendLaterRequest struct {
	Message  string `json:"message" binding:"required"`
	TimeSent int64  `json:"timeSent" binding:"required"`
}

// SendLater handles POST /v1/channels/:id/messages/sendlater
func (h *ChannelHandler) SendLater(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req sendLaterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mid, err := h.messages.SendLater(middleware.GetUserID(c), id, req.Message, req.TimeSent)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messageId": mid})
}
