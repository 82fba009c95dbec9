// cleanup.go — фоновая очистка физических файлов хранилища.
//
// Два механизма:
//  1. Очередь: Upsert ставит вытесненный файл в очередь, горутина
//     удаляет его асинхронно. Постановка неблокирующая, ошибки
//     удаления только логируются — клиентский запрос не страдает.
//  2. Периодический sweep: удаляет PDF-файлы, на которые не ссылается
//     ни одна запись датасета и которые старше минимального возраста
//     (защита от гонки с загрузкой, ещё не завершившей Upsert).
//     Заодно обновляет gauge занятого объёма.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/edocs/internal/api/middleware"
	"github.com/bigkaa/edocs/internal/storage/filestore"
)

// Prometheus метрики очистки
var (
	// cleanupRunsTotal — количество запусков sweep.
	cleanupRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ed_cleanup_runs_total",
		Help: "Общее количество запусков фоновой очистки",
	})

	// cleanupDeletedTotal — количество удалённых файлов по источнику
	// (queue — вытесненные при повторной загрузке, sweep — сироты).
	cleanupDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ed_cleanup_files_deleted_total",
		Help: "Общее количество файлов, удалённых фоновой очисткой",
	}, []string{"source"})

	// cleanupErrorsTotal — количество ошибок удаления.
	cleanupErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ed_cleanup_errors_total",
		Help: "Общее количество ошибок фоновой очистки",
	})
)

// referencedSet — источник множества файлов, на которые ссылается датасет.
type referencedSet interface {
	Referenced() map[string]bool
}

// CleanupService — фоновый уборщик файлового хранилища.
type CleanupService struct {
	store    *filestore.FileStore
	refs     referencedSet
	interval time.Duration
	minAge   time.Duration
	logger   *slog.Logger

	queue  chan string
	mu     sync.Mutex // защита от параллельного запуска SweepOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// queueCapacity — ёмкость очереди отложенных удалений. Переполнение
// не блокирует запрос: файл подберёт следующий sweep.
const queueCapacity = 256

// NewCleanupService создаёт сервис очистки.
// refs может быть установлен позже через SetReferenced (стор и уборщик
// создаются взаимно: стор ссылается на очередь, уборщик — на датасет).
func NewCleanupService(
	store *filestore.FileStore,
	interval time.Duration,
	minAge time.Duration,
	logger *slog.Logger,
) *CleanupService {
	return &CleanupService{
		store:    store,
		interval: interval,
		minAge:   minAge,
		logger:   logger.With(slog.String("component", "cleanup")),
		queue:    make(chan string, queueCapacity),
	}
}

// SetReferenced задаёт источник множества используемых файлов.
// Вызывается один раз при старте, до Start.
func (c *CleanupService) SetReferenced(refs referencedSet) {
	c.refs = refs
}

// Enqueue ставит файл в очередь отложенного удаления.
// Никогда не блокирует: при переполненной очереди файл оставляется
// сиротой и будет удалён периодическим sweep.
func (c *CleanupService) Enqueue(pdfKey string) {
	select {
	case c.queue <- pdfKey:
	default:
		c.logger.Warn("Очередь очистки переполнена, файл будет удалён sweep",
			slog.String("pdf_key", pdfKey),
		)
	}
}

// Start запускает фоновую горутину очистки.
// Вызывается один раз при старте приложения.
func (c *CleanupService) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(runCtx)

	c.logger.Info("Фоновая очистка запущена",
		slog.String("interval", c.interval.String()),
		slog.String("min_age", c.minAge.String()),
	)
}

// Stop останавливает фоновый процесс и дожидается его завершения.
func (c *CleanupService) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	c.logger.Info("Фоновая очистка остановлена")
}

// run — основной цикл фоновой горутины: очередь + периодический sweep.
func (c *CleanupService) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case pdfKey := <-c.queue:
			c.deleteQueued(pdfKey)
		case <-ticker.C:
			c.SweepOnce()
		}
	}
}

// deleteQueued удаляет вытесненный файл из очереди. Best effort.
func (c *CleanupService) deleteQueued(pdfKey string) {
	if err := c.store.Delete(pdfKey); err != nil {
		cleanupErrorsTotal.Inc()
		c.logger.Warn("Ошибка удаления вытесненного файла",
			slog.String("pdf_key", pdfKey),
			slog.String("error", err.Error()),
		)
		return
	}

	cleanupDeletedTotal.WithLabelValues("queue").Inc()
	c.logger.Debug("Вытесненный файл удалён", slog.String("pdf_key", pdfKey))
}

// SweepResult — результат одного прохода sweep.
type SweepResult struct {
	// DeletedCount — количество удалённых файлов-сирот
	DeletedCount int
	// Errors — количество ошибок удаления
	Errors int
	// TotalBytes — суммарный объём оставшихся файлов
	TotalBytes int64
	// Duration — длительность прохода
	Duration time.Duration
}

// SweepOnce выполняет один проход очистки сирот.
// Потокобезопасен: mutex защищает от параллельного запуска.
func (c *CleanupService) SweepOnce() *SweepResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	files, err := c.store.List()
	if err != nil {
		cleanupErrorsTotal.Inc()
		c.logger.Error("Ошибка листинга хранилища", slog.String("error", err.Error()))
		return result
	}

	var referenced map[string]bool
	if c.refs != nil {
		referenced = c.refs.Referenced()
	}

	cutoff := time.Now().Add(-c.minAge)

	for _, f := range files {
		if referenced[f.Name] || f.ModTime.After(cutoff) {
			result.TotalBytes += f.Size
			continue
		}

		if err := c.store.Delete(f.Name); err != nil {
			result.Errors++
			result.TotalBytes += f.Size
			cleanupErrorsTotal.Inc()
			c.logger.Warn("Ошибка удаления файла-сироты",
				slog.String("pdf_key", f.Name),
				slog.String("error", err.Error()),
			)
			continue
		}

		result.DeletedCount++
		cleanupDeletedTotal.WithLabelValues("sweep").Inc()
		c.logger.Info("Файл-сирота удалён", slog.String("pdf_key", f.Name))
	}

	result.Duration = time.Since(start)

	cleanupRunsTotal.Inc()
	middleware.StorageBytes.Set(float64(result.TotalBytes))

	c.logger.Debug("Sweep завершён",
		slog.Int("deleted", result.DeletedCount),
		slog.Int("errors", result.Errors),
		slog.Int64("bytes", result.TotalBytes),
		slog.Duration("duration", result.Duration),
	)

	return result
}
