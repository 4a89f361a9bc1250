package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voltroute/voltroute/internal/catalog"
	"github.com/voltroute/voltroute/internal/metrics"
	"github.com/voltroute/voltroute/internal/planner"
	"github.com/voltroute/voltroute/internal/store"
	"github.com/voltroute/voltroute/internal/upstream"
	"github.com/voltroute/voltroute/pkg/ws"
)

// clientCookie carries the client identity that scopes all durable state.
const clientCookie = "voltroute_client"

const clientIDKey = "client_id"

// Handler bundles everything the HTTP surface needs.
type Handler struct {
	logger   *zap.Logger
	store    store.Store
	catalog  *catalog.Cache
	editors  *planner.Editors
	pipeline *planner.Pipeline
	client   *upstream.Client
	wsHub    *ws.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates the handler.
func NewHandler(
	logger *zap.Logger,
	st store.Store,
	cat *catalog.Cache,
	editors *planner.Editors,
	pipeline *planner.Pipeline,
	client *upstream.Client,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:   logger,
		store:    st,
		catalog:  cat,
		editors:  editors,
		pipeline: pipeline,
		client:   client,
		wsHub:    wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes wires the API.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(MetricsMiddleware())

	api := r.Group("/api")
	api.Use(h.ClientIDMiddleware())
	{
		// Auth & session
		api.POST("/login", h.Login)
		api.POST("/signup", h.Signup)
		api.POST("/logout", h.Logout)
		api.GET("/session", h.GetSession)

		// Theme
		api.GET("/theme", h.GetTheme)
		api.PUT("/theme", h.SetTheme)
		api.POST("/theme/toggle", h.ToggleTheme)

		// Vehicle catalog
		api.GET("/catalog", h.GetCatalog)
		api.GET("/catalog/companies", h.ListCompanies)
		api.GET("/catalog/companies/:company/models", h.ListModels)
		api.GET("/catalog/companies/:company/models/:model", h.GetSpecs)

		// Customer list editor
		api.GET("/customers", h.ListCustomers)
		api.POST("/customers", h.AddCustomer)
		api.PUT("/customers/:index", h.UpdateCustomer)
		api.DELETE("/customers/:index", h.RemoveCustomer)
		api.POST("/customers/import", h.ImportCustomers)

		// Optimization pipeline
		api.POST("/optimize", h.Optimize)
		api.GET("/optimize/state", h.OptimizeState)
		api.POST("/optimize/cancel", h.CancelOptimize)

		// Results
		api.GET("/results", h.GetResults)
		api.GET("/results/summary", h.DownloadSummary)
		api.GET("/results/share", h.ShareResults)
		api.GET("/results/maps-url", h.MapsURL)

		// Route history
		api.GET("/routes", h.ListRoutes)
		api.GET("/routes/:id", h.GetRoute)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// Ops
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
}

// ClientIDMiddleware resolves the client identity: the X-Client-ID header
// for API callers, otherwise a cookie issued on first contact.
func (h *Handler) ClientIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-Client-ID"); id != "" {
			c.Set(clientIDKey, id)
			c.Next()
			return
		}

		id, err := c.Cookie(clientCookie)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetCookie(clientCookie, id, int((365 * 24 * time.Hour).Seconds()), "/", "", false, true)
		}
		c.Set(clientIDKey, id)
		c.Next()
	}
}

// MetricsMiddleware records request counts and durations.
func MetricsMiddleware() gin.HandlerFunc {
	metrics.RegisterDefault()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// clientID returns the identity resolved by the middleware.
func clientID(c *gin.Context) string {
	return c.GetString(clientIDKey)
}

// HandleWebSocket upgrades the connection and attaches it to the hub.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}
