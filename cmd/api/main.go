package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	"github.com/BruksfildServices01/erms-api/internal/cache"
	"github.com/BruksfildServices01/erms-api/internal/config"
	dbpkg "github.com/BruksfildServices01/erms-api/internal/db"
	"github.com/BruksfildServices01/erms-api/internal/logger"
	"github.com/BruksfildServices01/erms-api/internal/middleware"
	"github.com/BruksfildServices01/erms-api/internal/notify"
	"github.com/BruksfildServices01/erms-api/internal/realtime"
	"github.com/BruksfildServices01/erms-api/internal/routes"
	"github.com/BruksfildServices01/erms-api/internal/storage"
	"github.com/BruksfildServices01/erms-api/internal/timezone"
)

const rateLimitIdle = 10 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "erms-api")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := dbpkg.NewDB(cfg, zlog)
	if err != nil {
		zlog.Fatal("database", zap.Error(err))
	}
	if err := dbpkg.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword, zlog); err != nil {
		zlog.Fatal("seed admin", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.NewRedisClient(ctx, cfg)
		if err != nil {
			zlog.Warn("redis unavailable, availability cache disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var store storage.ObjectStore
	if cfg.S3Enabled() {
		store = storage.NewS3Store(cfg)
	}

	hub := realtime.NewHub(zlog)
	go hub.Run(ctx)

	dispatcher := audit.NewDispatcher(audit.New(db), zlog)
	defer dispatcher.Close()

	limits := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go func() {
		ticker := time.NewTicker(rateLimitIdle)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limits.Cleanup(rateLimitIdle)
			case <-ctx.Done():
				return
			}
		}
	}()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(zlog),
		gin.Recovery(),
		middleware.CORSMiddleware(),
	)

	routes.RegisterRoutes(r, routes.Deps{
		DB:     db,
		Config: cfg,
		Log:    zlog,
		Redis:  rdb,
		Hub:    hub,
		Audit:  dispatcher,
		Store:  store,
		Clock:  timezone.SystemClock(cfg.Timezone),
		Limits: limits,
		Sender: notify.New(cfg.NotifyWebhookURL, zlog),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server running", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown", zap.Error(err))
	}
}
