package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/voltroute/voltroute/internal/api/handlers"
	"github.com/voltroute/voltroute/internal/catalog"
	"github.com/voltroute/voltroute/internal/config"
	"github.com/voltroute/voltroute/internal/planner"
	"github.com/voltroute/voltroute/internal/state"
	"github.com/voltroute/voltroute/internal/store"
	"github.com/voltroute/voltroute/internal/upstream"
	"github.com/voltroute/voltroute/pkg/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting voltroute",
		zap.String("port", cfg.ServerPort),
		zap.String("upstream", cfg.UpstreamBaseURL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := openStore(ctx, cfg, logger)
	defer st.Close()

	client := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout)
	cat := catalog.NewCache(client, cfg.CatalogTTL, logger)

	// Warm the catalog; a failure only logs and the cache stays empty.
	cat.Load(ctx)

	wsHub := ws.NewHub(logger)
	go wsHub.Run()

	machines := state.NewManager(func(clientID, from, to string) {
		wsHub.BroadcastMessage(ws.MsgTypePipelineUpdate, map[string]string{
			"client_id": clientID,
			"from":      from,
			"to":        to,
		})
	})
	wsHub.SetInitDataProvider(func() interface{} {
		return machines.GetAllStates()
	})

	pipeline := planner.NewPipeline(
		logger,
		client,
		st,
		machines,
		cfg.UpstreamTimeout,
		cfg.OptimizeRate,
		cfg.OptimizeBurst,
	)
	editors := planner.NewEditors()

	handler := handlers.NewHandler(logger, st, cat, editors, pipeline, client, wsHub)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openStore connects to Postgres when configured, falling back to the
// in-memory store so the service stays usable without durable storage.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) store.Store {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory state store")
		return store.NewMemory()
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect database, using in-memory state store", zap.Error(err))
		return store.NewMemory()
	}

	if err := pg.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	return pg
}

// initLogger builds the zap logger.
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Client-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
