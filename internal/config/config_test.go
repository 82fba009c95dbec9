package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setRequired задаёт минимальный набор обязательных переменных.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ED_DATA_DIR", "/var/lib/edocs")
	t.Setenv("ED_TOKEN_SECRET", "test-secret-0123456789abcdef")
}

// TestLoad_Defaults проверяет значения по умолчанию.
func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("порт: ожидалось 8080, получено %d", cfg.Port)
	}
	if cfg.TokenTTL != 120*time.Second {
		t.Errorf("окно токена: ожидалось 120s, получено %v", cfg.TokenTTL)
	}
	if cfg.MaxFileSize != 25<<20 {
		t.Errorf("лимит файла: ожидалось %d, получено %d", 25<<20, cfg.MaxFileSize)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("base url: ожидалось http://localhost:8080, получено %s", cfg.BaseURL)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("формат логов: ожидалось json, получено %s", cfg.LogFormat)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("уровень логов: ожидалось info, получено %v", cfg.LogLevel)
	}
	if cfg.CleanupInterval != time.Hour {
		t.Errorf("интервал очистки: ожидалось 1h, получено %v", cfg.CleanupInterval)
	}
}

// TestLoad_MissingDataDir проверяет обязательность ED_DATA_DIR.
func TestLoad_MissingDataDir(t *testing.T) {
	t.Setenv("ED_DATA_DIR", "")
	t.Setenv("ED_TOKEN_SECRET", "test-secret-0123456789abcdef")

	_, err := Load()
	if err == nil {
		t.Fatal("ожидалась ошибка без ED_DATA_DIR")
	}
	if !strings.Contains(err.Error(), "ED_DATA_DIR") {
		t.Errorf("ошибка должна называть переменную: %v", err)
	}
}

// TestLoad_MissingSecret проверяет обязательность ED_TOKEN_SECRET.
func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("ED_DATA_DIR", "/var/lib/edocs")
	t.Setenv("ED_TOKEN_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка без ED_TOKEN_SECRET")
	}
}

// TestLoad_ShortSecret проверяет минимальную длину секрета.
func TestLoad_ShortSecret(t *testing.T) {
	t.Setenv("ED_DATA_DIR", "/var/lib/edocs")
	t.Setenv("ED_TOKEN_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка для короткого секрета")
	}
}

// TestLoad_Overrides проверяет переопределение значений из окружения.
func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ED_PORT", "9000")
	t.Setenv("ED_TOKEN_TTL", "60s")
	t.Setenv("ED_MAX_FILE_SIZE", "1048576")
	t.Setenv("ED_BASE_URL", "https://edocs.example.com")
	t.Setenv("ED_LOG_LEVEL", "debug")
	t.Setenv("ED_LOG_FORMAT", "text")
	t.Setenv("ED_RATE_LIMIT", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("порт: ожидалось 9000, получено %d", cfg.Port)
	}
	if cfg.TokenTTL != time.Minute {
		t.Errorf("окно токена: ожидалось 60s, получено %v", cfg.TokenTTL)
	}
	if cfg.MaxFileSize != 1048576 {
		t.Errorf("лимит файла: ожидалось 1048576, получено %d", cfg.MaxFileSize)
	}
	if cfg.BaseURL != "https://edocs.example.com" {
		t.Errorf("base url: получено %s", cfg.BaseURL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("уровень логов: ожидалось debug, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("формат логов: ожидалось text, получено %s", cfg.LogFormat)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("rate limit: ожидалось 10, получено %d", cfg.RateLimit)
	}
}

// TestLoad_InvalidValues проверяет отклонение некорректных значений.
func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"некорректный порт", "ED_PORT", "abc"},
		{"порт вне диапазона", "ED_PORT", "99999"},
		{"некорректная длительность", "ED_TOKEN_TTL", "five minutes"},
		{"отрицательное окно", "ED_TOKEN_TTL", "-10s"},
		{"некорректный размер", "ED_MAX_FILE_SIZE", "big"},
		{"отрицательный размер", "ED_MAX_FILE_SIZE", "-1"},
		{"некорректный уровень логов", "ED_LOG_LEVEL", "verbose"},
		{"некорректный формат логов", "ED_LOG_FORMAT", "xml"},
		{"нулевой rate limit", "ED_RATE_LIMIT", "0"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("%s=%s: ожидалась ошибка", tt.key, tt.value)
			}
		})
	}
}

// TestParseLogLevel проверяет разбор уровней логирования.
func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range cases {
		level, err := parseLogLevel(tt.input)
		if err != nil {
			t.Errorf("parseLogLevel(%q): неожиданная ошибка %v", tt.input, err)
			continue
		}
		if level != tt.expected {
			t.Errorf("parseLogLevel(%q): ожидалось %v, получено %v", tt.input, tt.expected, level)
		}
	}

	if _, err := parseLogLevel("trace"); err == nil {
		t.Error("ожидалась ошибка для неизвестного уровня")
	}
}
