package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matchvision/pov-overlay/server/match"
	"github.com/matchvision/pov-overlay/server/models"
	"github.com/matchvision/pov-overlay/server/session"
)

type SessionHandler struct {
	manager *session.Manager
	logger  *zap.Logger
}

type CreateSessionRequest struct {
	GameID string `json:"game_id" binding:"required"`
}

func NewSessionHandler(manager *session.Manager, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{manager: manager, logger: logger}
}

// Create starts a viewing session; the dataset load runs in the background
// and the client polls Status (the processing screen) until it settles.
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	sess, err := h.manager.Create(req.GameID)
	if err != nil {
		switch {
		case errors.Is(err, match.ErrUnknownGame):
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		case errors.Is(err, session.ErrNotPlayable):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Game has no stream"})
		case errors.Is(err, session.ErrQueueFull):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Load queue full, try again later"})
		default:
			h.logger.Error("Session create failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Session create failed"})
		}
		return
	}

	c.JSON(http.StatusAccepted, sess.Snapshot())
}

func (h *SessionHandler) Status(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// Overlay answers a single REST query: positions, clip commands, score and
// commentary at time t. The websocket stream is the same computation driven
// by pushed time updates.
func (h *SessionHandler) Overlay(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	t, err := strconv.ParseFloat(c.DefaultQuery("t", "0"), 64)
	if err != nil || t < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query time"})
		return
	}
	playing := c.DefaultQuery("playing", "false") == "true"

	c.JSON(http.StatusOK, sess.Overlay(t, playing, nil))
}

func (h *SessionHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Stats(c.Request.Context()))
}

func (h *SessionHandler) lookup(c *gin.Context) (*session.Session, bool) {
	sess, err := h.manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return sess, true
}

// parseClipTimes converts the websocket clip report into role-keyed times.
func parseClipTimes(raw map[string]float64) map[models.Role]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[models.Role]float64, len(raw))
	for role, t := range raw {
		out[models.Role(role)] = t
	}
	return out
}
