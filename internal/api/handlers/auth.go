package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voltroute/voltroute/internal/store"
	"github.com/voltroute/voltroute/internal/upstream"
)

// upstreamError maps an upstream call failure to a response: the server's
// literal message passes through verbatim, a transport failure becomes the
// given generic message.
func (h *Handler) upstreamError(c *gin.Context, err error, generic string) {
	if ue, ok := upstream.IsUpstreamError(err); ok {
		c.JSON(ue.StatusCode, gin.H{"error": ue.Message})
		return
	}
	h.logger.Error("Upstream request failed", zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"error": generic})
}

// Login authenticates a vehicle number against the remote API and
// persists the returned identity as the client's session.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		VehicleNumber string `json:"vehicle_number"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.VehicleNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vehicle number is required"})
		return
	}

	session, err := h.client.Login(c.Request.Context(), req.VehicleNumber)
	if err != nil {
		h.upstreamError(c, err, "Login failed. Please try again.")
		return
	}

	if err := h.store.SetSession(c.Request.Context(), clientID(c), session); err != nil {
		h.logger.Error("Failed to persist session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}

	h.logger.Info("Login succeeded", zap.String("vehicle_number", session.VehicleNumber))
	c.JSON(http.StatusOK, gin.H{"data": session})
}

// Signup registers a new vehicle. Success does not log the client in; the
// UI sends the user back to the login page.
func (h *Handler) Signup(c *gin.Context) {
	var req upstream.SignupRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.VehicleNumber == "" || req.Company == "" || req.Model == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vehicle number, company and model are required"})
		return
	}

	// Fill battery and range from the catalog when the caller omitted them,
	// the way the signup form pre-filled its read-only fields.
	if req.BatteryCapacity == 0 || req.VehicleRange == 0 {
		if specs, ok := h.catalog.SpecsFor(c.Request.Context(), req.Company, req.Model); ok {
			if req.BatteryCapacity == 0 {
				req.BatteryCapacity = specs.BatteryCapacity
			}
			if req.VehicleRange == 0 {
				req.VehicleRange = specs.Range
			}
		}
	}

	if err := h.client.Signup(c.Request.Context(), req); err != nil {
		h.upstreamError(c, err, "Signup failed. Please try again.")
		return
	}

	h.logger.Info("Signup succeeded", zap.String("vehicle_number", req.VehicleNumber))
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"message": "Account created successfully! Please login."}})
}

// Logout clears the session and the stored optimization result.
func (h *Handler) Logout(c *gin.Context) {
	id := clientID(c)

	if err := h.store.ClearSession(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to clear session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}
	h.editors.Drop(id)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Logged out"}})
}

// GetSession returns the authenticated identity, or 401 when absent.
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.store.Session(c.Request.Context(), clientID(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to load session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}
