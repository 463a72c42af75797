package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/dms"
	"github.com/unsw-memes/memes/internal/messages"
	"github.com/unsw-memes/memes/internal/middleware"
)

// DMHandler serves DM lifecycle, membership and DM messages.
type DMHandler struct {
	dms      *dms.Service
	messages *messages.Service
	logger   *zap.Logger
}

func NewDMHandler(dmsSvc *dms.Service, messagesSvc *messages.Service, logger *zap.Logger) *DMHandler {
	return &DMHandler{dms: dmsSvc, messages: messagesSvc, logger: logger}
}

type createDMRequest struct {
	UIDs []int64 `json:"uIds" binding:"required"`
}

// Create handles POST /v1/dms
func (h *DMHandler) Create(c *gin.Context) {
	var req createDMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.dms.Create(middleware.GetUserID(c), req.UIDs)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dmId": id})
}

// List handles GET /v1/dms/list
func (h *DMHandler) List(c *gin.Context) {
	out, err := h.dms.List(middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dms": out})
}

// Details handles GET /v1/dms/:id/details
func (h *DMHandler) Details(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	det, err := h.dms.Details(middleware.GetUserID(c), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, det)
}

// Leave handles POST /v1/dms/:id/leave
func (h *DMHandler) Leave(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.dms.Leave(middleware.GetUserID(c), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Remove handles DELETE /v1/dms/:id
func (h *DMHandler) Remove(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.dms.Remove(middleware.GetUserID(c), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Messages handles GET /v1/dms/:id/messages?start=N
func (h *DMHandler) Messages(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	start, err := strconv.Atoi(c.DefaultQuery("start", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start"})
		return
	}
	page, err := h.dms.Messages(middleware.GetUserID(c), id, start)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Send handles POST /v1/dms/:id/messages
func (h *DMHandler) Send(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mid, err := h.messages.SendDM(middleware.GetUserID(c), id, req.Message)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messageId": mid})
}

// SendLater handles POST /v1/dms/:id/messages/sendlater
func (h *DMHandler) SendLater(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req sendLaterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mid, err := h.messages.SendLaterDM(middleware.GetUserID(c), id, req.Message, req.TimeSent)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messageId": mid})
}
