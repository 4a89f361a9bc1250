package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voltroute/voltroute/internal/models"
	"github.com/voltroute/voltroute/internal/render"
	"github.com/voltroute/voltroute/internal/store"
)

// loadResult fetches the stored result, answering the explicit no-data
// state when absent.
func (h *Handler) loadResult(c *gin.Context) (*models.OptimizeResult, bool) {
	result, err := h.store.Result(c.Request.Context(), clientID(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No optimization results found. Please run an optimization first."})
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to load result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load results"})
		return nil, false
	}
	return result, true
}

// GetResults renders the stored result as the results-page view model.
func (h *Handler) GetResults(c *gin.Context) {
	result, ok := h.loadResult(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": render.NewView(result)})
}

// DownloadSummary serves the plain-text summary as a file download.
func (h *Handler) DownloadSummary(c *gin.Context) {
	result, ok := h.loadResult(c)
	if !ok {
		return
	}

	filename := render.SummaryFilename(time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(render.SummaryText(result)))
}

// ShareResults returns the share text; the browser decides between the
// native share sheet and the clipboard fallbacks.
func (h *Handler) ShareResults(c *gin.Context) {
	result, ok := h.loadResult(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"title": "EV Route Optimization Results",
		"text":  render.ShareText(result),
	}})
}

// MapsURL returns the mapping-service deep link for the optimized route.
func (h *Handler) MapsURL(c *gin.Context) {
	result, ok := h.loadResult(c)
	if !ok {
		return
	}

	mapsURL, err := render.MapsURL(result)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"url": mapsURL}})
}

// ListRoutes returns the authenticated vehicle's archived results, newest
// first.
func (h *Handler) ListRoutes(c *gin.Context) {
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

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	records, err := h.store.ListRoutes(c.Request.Context(), session.VehicleNumber, perPage, offset)
	if err != nil {
		h.logger.Error("Failed to list routes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list routes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": records,
		"pagination": gin.H{
			"page":     page,
			"per_page": perPage,
		},
	})
}

// GetRoute returns one archived result by ID, scoped to the session's
// vehicle.
func (h *Handler) GetRoute(c *gin.Context) {
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

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	record, err := h.store.RouteByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to load route", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load route"})
		return
	}
	if record.VehicleNumber != session.VehicleNumber {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}
