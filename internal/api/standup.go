package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/middleware"
	"github.com/unsw-memes/memes/internal/standup"
)

// StandupHandler serves the per-channel standup endpoints.
type StandupHandler struct {
	standup *standup.Service
	logger  *zap.Logger
}

func NewStandupHandler(standupSvc *standup.Service, logger *zap.Logger) *StandupHandler {
	return &StandupHandler{standup: standupSvc, logger: logger}
}

type standupStartRequest struct {
	Length int64 `json:"length"`
}

// Start handles POST /v1/channels/:id/standup/start
func (h *StandupHandler) Start(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req standupStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	finish, err := h.standup.Start(middleware.GetUserID(c), id, req.Length)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeFinish": finish})
}

// Active handles GET /v1/channels/:id/standup/active
func (h *StandupHandler) Active(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	status, err := h.standup.Active(middleware.GetUserID(c), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type standupSendRequest struct {
	Message string `json:"message" binding:"required"`
}

// Send handles POST /v1/channels/:id/standup/send
func (h *StandupHandler) Send(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req standupSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.standup.Send(middleware.GetUserID(c), id, req.Message); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
