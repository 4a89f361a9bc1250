package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voltroute/voltroute/internal/metrics"
	"github.com/voltroute/voltroute/internal/models"
	"github.com/voltroute/voltroute/internal/planner"
	"github.com/voltroute/voltroute/internal/upstream"
)

// Optimize runs one optimization round trip: preconditions, a single
// upstream call, and persistence of the raw result for the results view.
func (h *Handler) Optimize(c *gin.Context) {
	var req struct {
		Algorithm string               `json:"algorithm"`
		Params    models.RuntimeParams `json:"params"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id := clientID(c)
	customers := h.editors.For(id).Entries()

	start := time.Now()
	result, err := h.pipeline.Submit(c.Request.Context(), id, req.Algorithm, customers, req.Params)
	if err != nil {
		h.optimizeError(c, req.Algorithm, err)
		return
	}
	metrics.UpstreamLatency.WithLabelValues("optimize").Observe(time.Since(start).Seconds())
	metrics.OptimizeSubmissions.WithLabelValues(req.Algorithm, "success").Inc()

	h.wsHub.BroadcastMessage("result_ready", h.pipeline.State(id))

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *Handler) optimizeError(c *gin.Context, algorithm string, err error) {
	var ve *planner.ValidationError

	switch {
	case errors.Is(err, planner.ErrNoSession):
		metrics.OptimizeSubmissions.WithLabelValues(algorithm, "blocked").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, planner.ErrNoCustomers), errors.As(err, &ve):
		metrics.OptimizeSubmissions.WithLabelValues(algorithm, "blocked").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, planner.ErrInFlight):
		metrics.OptimizeSubmissions.WithLabelValues(algorithm, "blocked").Inc()
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, planner.ErrRateLimited):
		metrics.OptimizeSubmissions.WithLabelValues(algorithm, "blocked").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		if ue, ok := upstream.IsUpstreamError(err); ok {
			metrics.OptimizeSubmissions.WithLabelValues(algorithm, "upstream_error").Inc()
			c.JSON(ue.StatusCode, gin.H{"error": ue.Message})
			return
		}
		metrics.OptimizeSubmissions.WithLabelValues(algorithm, "network_error").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": "Optimization failed. Please try again."})
	}
}

// OptimizeState returns the client's pipeline snapshot.
func (h *Handler) OptimizeState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.pipeline.State(clientID(c))})
}

// CancelOptimize aborts the in-flight request, if any.
func (h *Handler) CancelOptimize(c *gin.Context) {
	if !h.pipeline.Cancel(clientID(c)) {
		c.JSON(http.StatusConflict, gin.H{"error": "No optimization request in progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Optimization canceled"}})
}
