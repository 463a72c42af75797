package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/messages"
	"github.com/unsw-memes/memes/internal/middleware"
)

// MessageHandler serves edit, remove, react, pin, share and search.
type MessageHandler struct {
	messages *messages.Service
	logger   *zap.Logger
}

func NewMessageHandler(messagesSvc *messages.Service, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messagesSvc, logger: logger}
}

type editRequest struct {
	Message string `json:"message"`
}

// Edit handles PUT /v1/messages/:id. An empty message removes it.
func (h *MessageHandler) Edit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.messages.Edit(middleware.GetUserID(c), id, req.Message); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Remove handles DELETE /v1/messages/:id
func (h *MessageHandler) Remove(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.messages.Remove(middleware.GetUserID(c), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type reactRequest struct {
	ReactID int64 `json:"reactId" binding:"required"`
}

// React handles POST /v1/messages/:id/react
func (h *MessageHandler) React(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.messages.React(middleware.GetUserID(c), id, req.ReactID); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Unreact handles POST /v1/messages/:id/unreact
func (h *MessageHandler) Unreact(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.messages.Unreact(middleware.GetUserID(c), id, req.ReactID); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Pin handles POST /v1/messages/:id/pin
func (h *MessageHandler) Pin(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.messages.Pin(middleware.GetUserID(c), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Unpin handles POST /v1/messages/:id/unpin
func (h *MessageHandler) Unpin(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.messages.Unpin(middleware.GetUserID(c), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type shareRequest struct {
	Message   string `json:"message"`
	ChannelID *int64 `json:"channelId" binding:"required"`
	DMID      *int64 `json:"dmId" binding:"required"`
}

// Share handles POST /v1/messages/:id/share. Exactly one of channelId and
// dmId must be a real destination; the other is -1.
func (h *MessageHandler) Share(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mid, err := h.messages.Share(middleware.GetUserID(c), id, req.Message, *req.ChannelID, *req.DMID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sharedMessageId": mid})
}

// Search handles GET /v1/search?queryStr=...
func (h *MessageHandler) Search(c *gin.Context) {
	out, err := h.messages.Search(middleware.GetUserID(c), c.Query("queryStr"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}
