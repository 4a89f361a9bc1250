package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voltroute/voltroute/internal/models"
)

func themePayload(theme models.Theme) gin.H {
	return gin.H{"theme": theme, "glyph": theme.Glyph()}
}

// GetTheme returns the client's theme, defaulting to light.
func (h *Handler) GetTheme(c *gin.Context) {
	theme, err := h.store.Theme(c.Request.Context(), clientID(c))
	if err != nil {
		// Degrade to the default rather than failing the page.
		h.logger.Warn("Failed to load theme", zap.Error(err))
		theme = models.ThemeLight
	}

	c.JSON(http.StatusOK, gin.H{"data": themePayload(theme)})
}

// SetTheme stores an explicit theme choice.
func (h *Handler) SetTheme(c *gin.Context) {
	var req struct {
		Theme models.Theme `json:"theme"`
	}
	if err := c.BindJSON(&req); err != nil || !req.Theme.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Theme must be light or dark"})
		return
	}

	if err := h.store.SetTheme(c.Request.Context(), clientID(c), req.Theme); err != nil {
		h.logger.Warn("Failed to persist theme", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"data": themePayload(req.Theme)})
}

// ToggleTheme flips the theme, persists it, and returns the new value.
// A storage failure degrades to the in-memory flip rather than an error.
func (h *Handler) ToggleTheme(c *gin.Context) {
	id := clientID(c)

	theme, err := h.store.Theme(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("Failed to load theme", zap.Error(err))
		theme = models.ThemeLight
	}

	next := theme.Toggle()
	if err := h.store.SetTheme(c.Request.Context(), id, next); err != nil {
		h.logger.Warn("Failed to persist theme", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"data": themePayload(next)})
}
