package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matchvision/pov-overlay/server/match"
)

type GamesHandler struct {
	catalog *match.Catalog
	logger  *zap.Logger
}

func NewGamesHandler(catalog *match.Catalog, logger *zap.Logger) *GamesHandler {
	return &GamesHandler{catalog: catalog, logger: logger}
}

// List returns the games catalog for the landing page.
func (h *GamesHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"games": h.catalog.Games()})
}

// Get returns one game card plus its player roster.
func (h *GamesHandler) Get(c *gin.Context) {
	game, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game":    game,
		"players": game.Players,
	})
}
