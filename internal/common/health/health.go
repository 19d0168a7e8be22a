package health

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

// Check проверяет зависимость сервиса (БД, кэш и т.п.).
type Check func(ctx context.Context) error

// LivenessProbe проверяет, что приложение работает
func LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// ReadinessProbe прогоняет проверки зависимостей; первая ошибка дает 503.
func ReadinessProbe(checks ...Check) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "not ready",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	}
}

// StartupProbe проверяет, что приложение успешно запустилось
func StartupProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "started",
	})
}

// Register вешает три пробы на /health/*.
func Register(app *fiber.App, checks ...Check) {
	app.Get("/health/live", LivenessProbe)
	app.Get("/health/ready", ReadinessProbe(checks...))
	app.Get("/health/startup", StartupProbe)
}
