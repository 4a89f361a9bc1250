package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voltroute/voltroute/internal/models"
)

// ListCustomers returns every row, including incomplete ones, in order.
func (h *Handler) ListCustomers(c *gin.Context) {
	list := h.editors.For(clientID(c))
	c.JSON(http.StatusOK, gin.H{"data": list.Rows()})
}

// AddCustomer appends a row. An empty body adds an empty, editable row;
// a body with name/address fills it in one call.
func (h *Handler) AddCustomer(c *gin.Context) {
	var entry models.CustomerEntry
	// Body is optional.
	_ = c.ShouldBindJSON(&entry)

	list := h.editors.For(clientID(c))
	index := list.AddRow()
	if entry != (models.CustomerEntry{}) {
		// Row was just appended; the index is valid.
		_ = list.UpdateRow(index, entry)
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"index": index}})
}

// UpdateCustomer replaces the row at the given position.
func (h *Handler) UpdateCustomer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid row index"})
		return
	}

	var entry models.CustomerEntry
	if err := c.BindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.editors.For(clientID(c)).UpdateRow(index, entry); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

// RemoveCustomer deletes the row at the given position, preserving the
// order of the remainder.
func (h *Handler) RemoveCustomer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid row index"})
		return
	}

	if err := h.editors.For(clientID(c)).RemoveRow(index); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportCustomers replaces the list. With rows in the body it is a
// wholesale import; without, it is the upload stub and injects the fixed
// sample rows regardless of any uploaded file's contents.
func (h *Handler) ImportCustomers(c *gin.Context) {
	var req struct {
		Rows []models.CustomerEntry `json:"rows"`
	}
	_ = c.ShouldBindJSON(&req)

	list := h.editors.For(clientID(c))
	if len(req.Rows) > 0 {
		list.ImportRows(req.Rows)
	} else {
		list.ImportSample()
	}

	c.JSON(http.StatusOK, gin.H{"data": list.Rows()})
}
