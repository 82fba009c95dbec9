// Пакет gateway — pass-through шлюз поиска: принимает запросы
// внешнего фронта и пересылает их core-сервису edocs без
// интерпретации тела.
//
// config.go — конфигурация шлюза из переменных окружения.
package gateway

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации шлюза.
type Config struct {
	// Порт HTTP-сервера шлюза
	Port int
	// URL core-сервиса edocs (обязательный)
	CoreURL string
	// Таймаут запроса к core-сервису
	UpstreamTimeout time.Duration
	// Разрешённый origin для CORS (пустой — любой)
	PublicOrigin string
	// Лимит запросов на клиента за окно rate limit
	RateLimit int
	// Окно rate limit
	RateLimitWindow time.Duration
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Уровень логирования
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration
	// Таймаут чтения HTTP-запроса
	ReadTimeout time.Duration
	// Таймаут записи HTTP-ответа
	WriteTimeout time.Duration
}

// LoadConfig загружает конфигурацию шлюза из переменных окружения.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	// GW_PORT — порт шлюза (по умолчанию 8081)
	cfg.Port, err = getEnvInt("GW_PORT", 8081)
	if err != nil {
		return nil, fmt.Errorf("GW_PORT: %w", err)
	}

	// GW_CORE_URL — обязательный
	cfg.CoreURL = os.Getenv("GW_CORE_URL")
	if cfg.CoreURL == "" {
		return nil, fmt.Errorf("GW_CORE_URL: обязательная переменная окружения не задана")
	}
	cfg.CoreURL = strings.TrimRight(cfg.CoreURL, "/")

	// GW_UPSTREAM_TIMEOUT — таймаут запроса к core (по умолчанию 10s)
	cfg.UpstreamTimeout, err = getEnvDuration("GW_UPSTREAM_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GW_UPSTREAM_TIMEOUT: %w", err)
	}

	// GW_PUBLIC_ORIGIN — разрешённый origin CORS (по умолчанию любой)
	cfg.PublicOrigin = os.Getenv("GW_PUBLIC_ORIGIN")

	// GW_RATE_LIMIT — лимит запросов за окно (по умолчанию 60)
	cfg.RateLimit, err = getEnvInt("GW_RATE_LIMIT", 60)
	if err != nil {
		return nil, fmt.Errorf("GW_RATE_LIMIT: %w", err)
	}

	// GW_RATE_LIMIT_WINDOW — окно rate limit (по умолчанию 1m)
	cfg.RateLimitWindow, err = getEnvDuration("GW_RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("GW_RATE_LIMIT_WINDOW: %w", err)
	}

	// GW_DEPHEALTH_CHECK_INTERVAL — интервал проверки core (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("GW_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GW_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// GW_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию "edocs-gateway")
	cfg.DephealthGroup = getEnvDefault("GW_DEPHEALTH_GROUP", "edocs-gateway")

	// GW_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("GW_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("GW_LOG_LEVEL: %w", err)
	}

	// GW_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("GW_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("GW_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// GW_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("GW_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GW_SHUTDOWN_TIMEOUT: %w", err)
	}

	// GW_READ_TIMEOUT — таймаут чтения запроса (по умолчанию 30s)
	cfg.ReadTimeout, err = getEnvDuration("GW_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GW_READ_TIMEOUT: %w", err)
	}

	// GW_WRITE_TIMEOUT — таймаут записи ответа (по умолчанию 30s)
	cfg.WriteTimeout, err = getEnvDuration("GW_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GW_WRITE_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает slog-логгер шлюза.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
