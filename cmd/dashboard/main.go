package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tradedesk/internal/client/channel"
	"tradedesk/internal/client/trades"
	"tradedesk/internal/config"
	cronrunner "tradedesk/internal/cron"
	"tradedesk/internal/db"
	"tradedesk/internal/handler"
	"tradedesk/internal/logger"
	"tradedesk/internal/reconcile"
	"tradedesk/internal/repository"
	gormrepository "tradedesk/internal/repository/gorm"
	memoryrepository "tradedesk/internal/repository/memory"
	"tradedesk/internal/session"
	"tradedesk/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("TD_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TD_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Postgres keeps the hidden set and publication journal across
	// restarts. Without a DSN the dashboard still runs, memory-only.
	var store repository.Repository
	var dbConn *db.DB
	if strings.TrimSpace(cfg.DB.DSN) != "" {
		dbConn, err = db.Open(cfg.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)
		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		store = gormrepository.New(dbConn.Gorm)
	} else {
		logger.Warn("no db dsn configured, hidden set will not survive restarts")
		store = memoryrepository.New()
	}

	tradesClient := trades.NewClient(nil, cfg.Upstream.Host, trades.Timeouts{
		Query:  cfg.Upstream.QueryTimeout,
		Mutate: cfg.Upstream.MutateTimeout,
	})

	hub := stream.NewHub(logger)
	recon := reconcile.New(logger, tradesClient, tradesClient, store)
	recon.OnCommit(hub.Publish)

	sessions := session.NewManager(cfg.Session.Password, cfg.Session.TTL)

	var channelClient *channel.Client
	if cfg.Channel.Enabled {
		channelClient = &channel.Client{BaseURL: cfg.Channel.BaseURL, APIKey: cfg.Channel.APIKey}
		loginCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := channelClient.Login(loginCtx); err != nil {
			logger.Warn("channel login failed, publishing degraded", zap.Error(err))
		}
		cancel()
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{}
	if dbConn != nil {
		healthHandler.DB = dbConn.Gorm
	}
	healthHandler.Register(engine)

	authHandler := &handler.AuthHandler{Sessions: sessions}
	authHandler.Register(engine)

	api := engine.Group("/api/v1", authHandler.Middleware())
	positionHandler := &handler.PositionHandler{Recon: recon, Trades: tradesClient, Logger: logger}
	positionHandler.Register(api)
	reportHandler := handler.NewReportHandler(tradesClient, cfg.Reports.CacheTTL, cfg.Reports.CleanupInterval)
	reportHandler.Register(api)
	publishHandler := &handler.PublishHandler{Channel: channelClient, Repo: store, Logger: logger}
	publishHandler.Register(api)

	engine.GET("/ws/positions", gin.WrapH(hub))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := recon.LoadHidden(ctx); err != nil {
		logger.Fatal("load hidden set failed", zap.Error(err))
	}
	if err := recon.RefreshOnce(ctx); err != nil {
		logger.Warn("initial snapshot fetch failed, serving empty list", zap.Error(err))
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err := cronRunner.Add(cfg.Cron.Refresh, func(ctx context.Context) {
			if err := recon.RefreshOnce(ctx); err != nil {
				logger.Warn("snapshot refresh failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register refresh failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Session-Token")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
