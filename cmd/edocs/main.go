// Точка входа edocs — сервиса выдачи электронных сертификатов.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/edocs/internal/api/handlers"
	"github.com/bigkaa/edocs/internal/api/middleware"
	"github.com/bigkaa/edocs/internal/config"
	"github.com/bigkaa/edocs/internal/server"
	"github.com/bigkaa/edocs/internal/service"
	"github.com/bigkaa/edocs/internal/storage/filestore"
	"github.com/bigkaa/edocs/internal/storage/recordstore"
	"github.com/bigkaa/edocs/internal/token"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("edocs запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
	)

	// --- Инициализация компонентов ---

	// 1. Файловое хранилище PDF
	files, err := filestore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации файлового хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Фоновая очистка. Создаётся до стора записей: стор ставит
	// вытесненные файлы в её очередь.
	cleanupSvc := service.NewCleanupService(files, cfg.CleanupInterval, cfg.CleanupMinAge, logger)

	// 3. Стор записей сертификатов
	records, err := recordstore.Open(cfg.DataDir, cleanupSvc, logger)
	if err != nil {
		logger.Error("Ошибка загрузки датасета", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cleanupSvc.SetReferenced(records)

	// Начальные значения gauge записей
	middleware.RecordsTotal.WithLabelValues("true").Set(float64(records.CountByActive(true)))
	middleware.RecordsTotal.WithLabelValues("false").Set(float64(records.CountByActive(false)))

	// 4. Кодек токенов доступа
	codec, err := token.New([]byte(cfg.TokenSecret), cfg.TokenTTL)
	if err != nil {
		logger.Error("Ошибка инициализации кодека токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Сервисы
	uploadSvc := service.NewUploadService(files, records, cfg.MaxFileSize, logger)
	lookupSvc := service.NewLookupService(records, codec, cfg.BaseURL, logger)
	deliverySvc := service.NewDeliveryService(records, files, codec, logger)

	// 6. Фоновые процессы
	ctx := context.Background()
	cleanupSvc.Start(ctx)

	// 7. Handlers
	h := &server.Handlers{
		Certificates: handlers.NewCertificatesHandler(uploadSvc, records, cfg.MaxFileSize),
		Lookup:       handlers.NewLookupHandler(lookupSvc),
		Delivery:     handlers.NewDeliveryHandler(deliverySvc),
		Health:       handlers.NewHealthHandler(records, cfg.DataDir, config.Version),
	}

	// 8. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, h)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	cleanupSvc.Stop()
	records.Close()

	logger.Info("edocs остановлен")
}
