// dephealth.go — интеграция с topologymetrics SDK: мониторинг
// доступности core-сервиса edocs.
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
package gateway

import (
	"context"
	"log/slog"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
)

// DephealthService — сервис мониторинга core-зависимости.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт мониторинг доступности core-сервиса.
// Проверка — HTTP GET liveness endpoint core.
func NewDephealthService(cfg *Config, logger *slog.Logger) (*DephealthService, error) {
	dh, err := dephealth.New("edocs-gateway", cfg.DephealthGroup,
		dephealth.WithLogger(logger),
		dephealth.HTTP("edocs-core",
			dephealth.FromURL(cfg.CoreURL),
			dephealth.WithHTTPHealthPath("/health/live"),
			dephealth.CheckInterval(cfg.DephealthCheckInterval),
			dephealth.Critical(true),
		),
	)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку core-сервиса.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг core-сервиса запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг core-сервиса остановлен")
}

// Health возвращает текущее состояние зависимостей.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
