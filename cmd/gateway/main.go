package main

import (
	"fmt"
	"log"
	"time"

	"property-tour/internal/common/config"
	"property-tour/internal/common/health"
	"property-tour/internal/common/logger"
	"property-tour/internal/common/middleware"
	"property-tour/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"
)

// ============================================================
// API Gateway
// ============================================================

const apiPrefix = "/api/v1"

func main() {
	cfg := config.Load()

	zlog, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "gateway")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    64 << 20,
		AppName:      "API Gateway",
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

	tour := proxy.New(cfg.TourURL, zlog.Named("proxy"))
	health.Register(app, tour.Ping)

	// ============================================================
	// API Routes
	// ============================================================

	app.Get(apiPrefix, func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "API Gateway v1",
			"status":  "ok",
		})
	})

	// Tour Service: владелец, редактор, просмотрщик и медиа
	app.All(apiPrefix+"/*", tour.Strip(apiPrefix))

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	zlog.Info("starting api gateway",
		zap.String("addr", addr),
		zap.String("env", cfg.Environment),
		zap.String("tour_url", cfg.TourURL),
	)

	if err := app.Listen(addr); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}
