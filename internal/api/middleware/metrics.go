// metrics.go — Prometheus HTTP метрики edocs.
// Регистрирует метрики: ed_http_requests_total, ed_http_request_duration_seconds.
// Бизнес-метрики (ed_records_total, ed_operations_total, ed_storage_bytes)
// экспортируются отсюда и обновляются из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ed_http_requests_total",
			Help: "Общее количество HTTP-запросов к edocs",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ed_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к edocs в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// RecordsTotal — текущее количество записей в датасете (gauge).
	RecordsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ed_records_total",
			Help: "Текущее количество записей сертификатов",
		},
		[]string{"active"},
	)

	// OperationsTotal — счётчик операций ядра.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ed_operations_total",
			Help: "Общее количество операций edocs",
		},
		[]string{"operation", "result"},
	)

	// StorageBytes — объём PDF-файлов в хранилище (gauge).
	StorageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ed_storage_bytes",
			Help: "Объём PDF-файлов в хранилище в байтах",
		},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (идентификаторы заменяются на {id} против роста кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет идентификаторы в пути на {id} для предотвращения
// взрывного роста кардинальности метрик.
// /files/a1b2... → /files/{id}; /api/certificates/a1b2... → /api/certificates/{id}.
func normalizePath(path string) string {
	switch {
	case path == "/health/live", path == "/health/ready", path == "/metrics":
		return path
	case path == "/api/lookup", path == "/api/certificates":
		return path
	case strings.HasPrefix(path, "/files/"):
		return "/files/{id}"
	case strings.HasPrefix(path, "/api/certificates/"):
		return "/api/certificates/{id}"
	case path == "/" || !strings.HasPrefix(path, "/api/"):
		// Статика фронтенда: не раздуваем кардинальность путями файлов
		return "/static"
	}
	return path
}
