package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCatalog returns the full company -> model -> specs mapping. An empty
// mapping is not an error; a failed upstream fetch only logs.
func (h *Handler) GetCatalog(c *gin.Context) {
	catalog := h.catalog.Load(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"data": catalog})
}

// ListCompanies returns the known companies, sorted.
func (h *Handler) ListCompanies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.catalog.Companies(c.Request.Context())})
}

// ListModels returns the models for a company, sorted. An unknown company
// yields an empty list so dependent selectors reset cleanly.
func (h *Handler) ListModels(c *gin.Context) {
	models := h.catalog.Models(c.Request.Context(), c.Param("company"))
	c.JSON(http.StatusOK, gin.H{"data": models})
}

// GetSpecs returns the battery capacity and range for a (company, model)
// pair.
func (h *Handler) GetSpecs(c *gin.Context) {
	specs, ok := h.catalog.SpecsFor(c.Request.Context(), c.Param("company"), c.Param("model"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown company or model"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": specs})
}
