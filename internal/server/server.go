// Пакет server — HTTP-сервер edocs с graceful shutdown.
// Без TLS — termination на внешнем reverse proxy.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"

	"github.com/bigkaa/edocs/internal/api/handlers"
	"github.com/bigkaa/edocs/internal/api/middleware"
	"github.com/bigkaa/edocs/internal/config"
	"github.com/bigkaa/edocs/internal/staticsite"
)

// Server — HTTP-сервер edocs.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// Handlers — набор обработчиков для регистрации маршрутов.
type Handlers struct {
	Certificates *handlers.CertificatesHandler
	Lookup       *handlers.LookupHandler
	Delivery     *handlers.DeliveryHandler
	Health       *handlers.HealthHandler
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// Порядок middleware: security headers → CORS → rate limit →
// логирование → метрики.
func New(cfg *config.Config, logger *slog.Logger, h *Handlers) *Server {
	router := chi.NewRouter()

	secureMw := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "no-referrer",
	})
	router.Use(secureMw.Handler)

	allowedOrigins := []string{"*"}
	if cfg.PublicOrigin != "" {
		allowedOrigins = []string{cfg.PublicOrigin}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Use(httprate.LimitByIP(cfg.RateLimit, cfg.RateLimitWindow))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	// API
	router.Route("/api", func(r chi.Router) {
		r.Post("/certificates", h.Certificates.Upload)
		r.Get("/certificates", h.Certificates.List)
		r.Delete("/certificates/{id}", h.Certificates.Deactivate)
		r.Post("/lookup", h.Lookup.Lookup)
	})

	// Доставка файлов по токенизированной ссылке
	router.Get("/files/{id}", h.Delivery.Serve)

	// Служебные endpoints
	router.Get("/health/live", h.Health.Liveness)
	router.Get("/health/ready", h.Health.Readiness)
	router.Handle("/metrics", promhttp.Handler())

	// Статика SPA — всё, что не совпало с маршрутами выше
	staticDir := staticsite.FindDir(cfg.StaticRoot)
	router.NotFound(staticsite.Handler(staticDir, logger).ServeHTTP)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
