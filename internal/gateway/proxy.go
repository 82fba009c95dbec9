// proxy.go — pass-through проксирование запроса поиска к core-сервису.
//
// Шлюз не интерпретирует тело: запрос пересылается как есть, статус и
// JSON ответа ретранслируются клиенту. Недоступный core — 502 в том же
// формате ошибок, что и core-сервис.
package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики шлюза
var (
	// proxyRequestsTotal — количество проксированных запросов по результату.
	proxyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gw_proxy_requests_total",
		Help: "Общее количество проксированных запросов поиска",
	}, []string{"result"})

	// proxyDuration — длительность запроса к core.
	proxyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gw_proxy_request_duration_seconds",
		Help:    "Длительность проксированного запроса к core-сервису",
		Buckets: prometheus.DefBuckets,
	})
)

// maxProxyBody — лимит тела проксируемого запроса.
const maxProxyBody = 64 << 10

// Proxy — проксирующий обработчик запросов поиска.
type Proxy struct {
	coreURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewProxy создаёт прокси к core-сервису.
func NewProxy(cfg *Config, logger *slog.Logger) *Proxy {
	return &Proxy{
		coreURL: cfg.CoreURL,
		client: &http.Client{
			Timeout: cfg.UpstreamTimeout,
		},
		logger: logger.With(slog.String("component", "proxy")),
	}
}

// Lookup обрабатывает POST /api/lookup: пересылает тело core-сервису
// и ретранслирует его ответ.
func (p *Proxy) Lookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body := http.MaxBytesReader(w, r.Body, maxProxyBody)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, p.coreURL+"/api/lookup", body)
	if err != nil {
		p.fail(w, "ошибка формирования запроса", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.fail(w, "core-сервис недоступен", err)
		return
	}
	defer resp.Body.Close()

	proxyDuration.Observe(time.Since(start).Seconds())
	proxyRequestsTotal.WithLabelValues("relayed").Inc()

	// Заголовок типа ретранслируется как есть, как и тело
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.Warn("Обрыв ретрансляции ответа", slog.String("error", err.Error()))
	}
}

// fail логирует ошибку и возвращает клиенту 502 в формате ошибок core.
func (p *Proxy) fail(w http.ResponseWriter, reason string, err error) {
	proxyRequestsTotal.WithLabelValues("upstream_error").Inc()
	p.logger.Error("Ошибка проксирования",
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_, _ = w.Write([]byte(`{"error":{"code":"UPSTREAM_ERROR","message":"Сервис временно недоступен"}}`))
}
