// Пакет config — загрузка и валидация конфигурации edocs
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// minTokenSecretLen — минимальная длина секрета токена в байтах.
const minTokenSecretLen = 16

// Config содержит все параметры конфигурации сервиса edocs.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории данных (датасет + PDF-файлы)
	DataDir string
	// Внешний базовый URL сервиса (для ссылок доставки)
	BaseURL string
	// Секрет подписи токенов доступа (минимум 16 байт)
	TokenSecret string
	// Окно валидности токена доступа
	TokenTTL time.Duration
	// Максимальный размер загружаемого PDF в байтах
	MaxFileSize int64
	// Разрешённый origin для CORS (пустой — любой)
	PublicOrigin string
	// Лимит запросов на клиента за окно rate limit
	RateLimit int
	// Окно rate limit
	RateLimitWindow time.Duration
	// Корень поиска каталога статики (пустой — текущий каталог)
	StaticRoot string
	// Интервал фонового sweep очистки
	CleanupInterval time.Duration
	// Минимальный возраст файла-сироты перед удалением
	CleanupMinAge time.Duration
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
	// Таймаут чтения HTTP-запроса
	ReadTimeout time.Duration
	// Таймаут записи HTTP-ответа
	WriteTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
// Файл .env, если присутствует, подхватывается до чтения окружения;
// уже установленные переменные имеют приоритет.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	// ED_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("ED_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("ED_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("ED_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// ED_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("ED_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// ED_BASE_URL — внешний базовый URL (по умолчанию локальный)
	cfg.BaseURL = getEnvDefault("ED_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port))

	// ED_TOKEN_SECRET — обязательный, минимум 16 байт
	cfg.TokenSecret, err = getEnvRequired("ED_TOKEN_SECRET")
	if err != nil {
		return nil, err
	}
	if len(cfg.TokenSecret) < minTokenSecretLen {
		return nil, fmt.Errorf("ED_TOKEN_SECRET: длина секрета %d байт, требуется минимум %d",
			len(cfg.TokenSecret), minTokenSecretLen)
	}

	// ED_TOKEN_TTL — окно валидности токена (по умолчанию 120s)
	cfg.TokenTTL, err = getEnvDuration("ED_TOKEN_TTL", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ED_TOKEN_TTL: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("ED_TOKEN_TTL: значение должно быть положительным")
	}

	// ED_MAX_FILE_SIZE — максимальный размер PDF (по умолчанию 25 MB)
	cfg.MaxFileSize, err = getEnvInt64("ED_MAX_FILE_SIZE", 25<<20)
	if err != nil {
		return nil, fmt.Errorf("ED_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("ED_MAX_FILE_SIZE: значение должно быть положительным")
	}

	// ED_PUBLIC_ORIGIN — разрешённый origin CORS (по умолчанию любой)
	cfg.PublicOrigin = getEnvDefault("ED_PUBLIC_ORIGIN", "")

	// ED_RATE_LIMIT — лимит запросов на клиента за окно (по умолчанию 100)
	cfg.RateLimit, err = getEnvInt("ED_RATE_LIMIT", 100)
	if err != nil {
		return nil, fmt.Errorf("ED_RATE_LIMIT: %w", err)
	}
	if cfg.RateLimit <= 0 {
		return nil, fmt.Errorf("ED_RATE_LIMIT: значение должно быть положительным")
	}

	// ED_RATE_LIMIT_WINDOW — окно rate limit (по умолчанию 1m)
	cfg.RateLimitWindow, err = getEnvDuration("ED_RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("ED_RATE_LIMIT_WINDOW: %w", err)
	}

	// ED_STATIC_ROOT — корень поиска статики (по умолчанию текущий каталог)
	cfg.StaticRoot = getEnvDefault("ED_STATIC_ROOT", ".")

	// ED_CLEANUP_INTERVAL — интервал sweep (по умолчанию 1h)
	cfg.CleanupInterval, err = getEnvDuration("ED_CLEANUP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("ED_CLEANUP_INTERVAL: %w", err)
	}

	// ED_CLEANUP_MIN_AGE — минимальный возраст сироты (по умолчанию 1h)
	cfg.CleanupMinAge, err = getEnvDuration("ED_CLEANUP_MIN_AGE", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("ED_CLEANUP_MIN_AGE: %w", err)
	}

	// ED_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("ED_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("ED_LOG_LEVEL: %w", err)
	}

	// ED_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("ED_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("ED_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// ED_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("ED_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ED_SHUTDOWN_TIMEOUT: %w", err)
	}

	// ED_READ_TIMEOUT — таймаут чтения запроса (по умолчанию 60s,
	// с запасом на загрузку крупных PDF по медленному каналу)
	cfg.ReadTimeout, err = getEnvDuration("ED_READ_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ED_READ_TIMEOUT: %w", err)
	}

	// ED_WRITE_TIMEOUT — таймаут записи ответа (по умолчанию 60s)
	cfg.WriteTimeout, err = getEnvDuration("ED_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ED_WRITE_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
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

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
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

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
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
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
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
