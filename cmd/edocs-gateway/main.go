// Точка входа edocs-gateway — pass-through шлюза поиска сертификатов.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/edocs/internal/gateway"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := gateway.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := gateway.SetupLogger(cfg)
	logger.Info("edocs-gateway запускается",
		slog.Int("port", cfg.Port),
		slog.String("core_url", cfg.CoreURL),
	)

	// Прокси к core-сервису
	proxy := gateway.NewProxy(cfg, logger)

	// topologymetrics — мониторинг core-зависимости
	ctx := context.Background()
	dephealthSvc, dephealthErr := gateway.NewDephealthService(cfg, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		}
	}

	// Создание и запуск HTTP-сервера
	srv := gateway.NewServer(cfg, logger, proxy, dephealthSvc)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("edocs-gateway остановлен")
}
