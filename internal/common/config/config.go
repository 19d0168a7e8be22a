package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int

	LogLevel  string
	LogFormat string

	DBPath         string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	MediaRoot  string
	SessionTTL time.Duration

	TourURL     string
	CORSOrigins []string
}

// Load читает .env (если есть) и переменные окружения.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "3000"),
		Environment:    getEnv("ENV", "development"),
		ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 10),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		DBPath:         getEnv("TOUR_DB_PATH", "data/db/tour.db"),
		MigrationsPath: getEnv("TOUR_MIGRATIONS", "migrations/001_init_tour.sql"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		CacheTTL:       time.Duration(getEnvAsInt("CACHE_TTL", 300)) * time.Second,
		MediaRoot:      getEnv("MEDIA_ROOT", "data/media"),
		SessionTTL:     time.Duration(getEnvAsInt("SESSION_TTL", 60)) * time.Minute,
		TourURL:        getEnv("TOUR_URL", "http://localhost:3002"),
		CORSOrigins:    getEnvAsList("CORS_ORIGINS"),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvAsList разбирает список через запятую, пропуская пустые элементы.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
