// health.go — HTTP handlers liveness и readiness probe.
package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/bigkaa/edocs/internal/storage/recordstore"
)

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	records *recordstore.Store
	dataDir string
	version string
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(records *recordstore.Store, dataDir, version string) *HealthHandler {
	return &HealthHandler{
		records: records,
		dataDir: dataDir,
		version: version,
	}
}

// Liveness обрабатывает GET /health/live.
// Процесс жив — всегда 200.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "alive",
		"version": h.version,
	})
}

// Readiness обрабатывает GET /health/ready.
// Готовность: датасет загружен и каталог данных доступен на запись.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if !h.records.IsReady() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "датасет не загружен",
		})
		return
	}

	if err := h.checkWritable(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "каталог данных недоступен на запись",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"version": h.version,
	})
}

// checkWritable проверяет возможность записи в каталог данных.
func (h *HealthHandler) checkWritable() error {
	probe := filepath.Join(h.dataDir, ".health-probe")

	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	f.Close()

	return os.Remove(probe)
}
