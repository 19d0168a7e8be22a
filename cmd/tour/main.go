package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"property-tour/internal/common/config"
	"property-tour/internal/common/health"
	"property-tour/internal/common/logger"
	"property-tour/internal/common/middleware"
	"property-tour/internal/tour/cache"
	"property-tour/internal/tour/handlers"
	"property-tour/internal/tour/repository"
	"property-tour/internal/tour/service"
	"property-tour/internal/tour/session"
	"property-tour/internal/tour/storage"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ============================================================
// Tour Service
// ============================================================

const bodyLimit = 64 << 20 // панорамы бывают большими

func main() {
	cfg := config.Load()
	if os.Getenv("PORT") == "" {
		cfg.Port = "3002"
	}

	zlog, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "tour")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		zlog.Fatal("open db", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background(), cfg.MigrationsPath); err != nil {
		zlog.Fatal("init db", zap.Error(err))
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	kv, closeCache, err := cache.Connect(connectCtx, cfg.RedisAddr, cfg.RedisPassword)
	cancel()
	if err != nil {
		zlog.Warn("redis unavailable, viewer cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		kv, closeCache = cache.NopKV{}, func() error { return nil }
	}
	defer closeCache()

	files := storage.NewFileStorage(cfg.MediaRoot)
	sessions := session.NewManager()
	props := service.NewPropertyService(repo, kv, cfg.CacheTTL, files, zlog.Named("properties"))
	editor := service.NewEditorService(props, sessions, zlog.Named("editor"))
	tourHandler := handlers.NewTourHandler(props, editor, files, zlog.Named("http"))

	// ============================================================
	// Session sweeper
	// ============================================================

	c := cron.New()
	_, err = c.AddFunc("@every 1m", func() {
		if n := sessions.Sweep(cfg.SessionTTL); n > 0 {
			zlog.Info("idle editor sessions closed", zap.Int("count", n), zap.Int("open", sessions.Len()))
		}
	})
	if err != nil {
		zlog.Fatal("schedule session sweep", zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    bodyLimit,
		AppName:      "Tour Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger(zlog.Named("access")))
	app.Use(middleware.CORS(cfg.CORSOrigins...))

	// ============================================================
	// Health Check Routes
	// ============================================================

	health.Register(app, repo.Ping, func(ctx context.Context) error {
		_, err := kv.Get(ctx, "tour:health")
		if err == nil || errors.Is(err, cache.ErrMiss) {
			return nil
		}
		return err
	})

	// ============================================================
	// Tour Routes
	// ============================================================

	tourHandler.Routes(app)

	// ============================================================
	// Server Start
	// ============================================================

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		zlog.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zlog.Error("shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	zlog.Info("starting tour service",
		zap.String("addr", addr),
		zap.String("env", cfg.Environment),
		zap.Bool("redis", cfg.RedisAddr != ""),
		zap.Duration("session_ttl", cfg.SessionTTL),
	)

	if err := app.Listen(addr); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}
