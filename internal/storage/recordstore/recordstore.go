// Пакет recordstore — долговременное хранилище записей сертификатов.
//
// Датасет — один JSON-файл records.json в директории данных. При
// открытии загружается целиком в память (map по id и по паре ключей),
// далее все чтения обслуживаются из памяти под RWMutex. Каждая мутация
// сериализует полный датасет и записывает его атомарно:
// temp → fsync → rename. Крэш посреди записи оставляет на диске либо
// старый, либо новый полный датасет — усечённый файл невозможен.
//
// Нормализация идентификаторов выполняется внутри стора и на пути
// записи (Upsert), и на пути чтения (Lookup): расхождение ключей
// между этими путями исключено по построению.
package recordstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/edocs/internal/domain/ident"
	"github.com/bigkaa/edocs/internal/domain/model"
)

// DatasetFile — имя файла датасета в директории данных.
const DatasetFile = "records.json"

// Ошибки recordstore.
var (
	// ErrInvalidKey — идентификатор пуст после нормализации либо
	// не задан ключ файла. Датасет не изменён.
	ErrInvalidKey = errors.New("невалидный ключ записи")

	// ErrStorage — ошибка долговременного сохранения датасета.
	// Предыдущее состояние на диске и в памяти сохранено.
	ErrStorage = errors.New("ошибка сохранения датасета")
)

// Janitor — приёмник отложенного удаления вытесненных файлов.
// Реализация обязана быть неблокирующей: медленное или неудачное
// удаление никогда не влияет на исход Upsert.
type Janitor interface {
	Enqueue(pdfKey string)
}

// pairKey — составной ключ пары нормализованных идентификаторов.
type pairKey struct {
	nationalID string
	serial     string
}

// Store — хранилище записей с lifecycle open/close.
// Потокобезопасно: чтения конкурентны, мутации сериализуются
// единым writer-локом вокруг load-modify-persist.
type Store struct {
	path    string
	mu      sync.RWMutex
	byID    map[string]*model.Record
	byPair  map[pairKey]*model.Record
	janitor Janitor
	logger  *slog.Logger
	ready   bool
}

// Open загружает датасет из директории данных и возвращает готовый Store.
// Отсутствующий файл датасета трактуется как пустой датасет.
// janitor может быть nil — тогда вытесненные файлы не удаляются.
func Open(dataDir string, janitor Janitor, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:    filepath.Join(dataDir, DatasetFile),
		byID:    make(map[string]*model.Record),
		byPair:  make(map[pairKey]*model.Record),
		janitor: janitor,
		logger:  logger.With(slog.String("component", "recordstore")),
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Первый запуск: пустой датасет
	case err != nil:
		return nil, fmt.Errorf("ошибка чтения датасета %s: %w", s.path, err)
	default:
		var records []*model.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("ошибка десериализации датасета %s: %w", s.path, err)
		}
		for _, rec := range records {
			s.byID[rec.ID] = rec
			s.byPair[pairKey{rec.NationalID, rec.Serial}] = rec
		}
	}

	s.ready = true
	s.logger.Info("Датасет загружен",
		slog.Int("records", len(s.byID)),
		slog.String("path", s.path),
	)

	return s, nil
}

// Close помечает Store закрытым. Данные уже на диске — каждая мутация
// персистится синхронно, поэтому отдельного flush не требуется.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
	return nil
}

// IsReady возвращает true, если датасет загружен и Store готов.
func (s *Store) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Upsert создаёт или обновляет запись по паре идентификаторов.
//
// Оба идентификатора нормализуются; пустой результат нормализации или
// пустой pdfKey — ErrInvalidKey. Существующая запись для пары (активная
// или нет) обновляется на месте: новый PDFKey, Active=true, свежий
// UpdatedAt; вытесненный прежний файл, если он отличается, ставится в
// очередь фонового удаления. Иначе создаётся новая запись с UUID.
//
// Успех возвращается только после атомарного сохранения датасета.
// При ошибке сохранения память откатывается к прежнему состоянию и
// возвращается ошибка, оборачивающая ErrStorage.
func (s *Store) Upsert(nationalID, serial, pdfKey string) (*model.Record, error) {
	nat := ident.Normalize(nationalID)
	ser := ident.Normalize(serial)
	if nat == "" || ser == "" || pdfKey == "" {
		return nil, ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().UnixMilli()
	key := pairKey{nat, ser}

	if existing, ok := s.byPair[key]; ok {
		prev := *existing // для отката и очереди удаления

		existing.PDFKey = pdfKey
		existing.Active = true
		existing.UpdatedAt = now

		if err := s.persistLocked(); err != nil {
			*existing = prev
			return nil, err
		}

		if s.janitor != nil && prev.PDFKey != "" && prev.PDFKey != pdfKey {
			s.janitor.Enqueue(prev.PDFKey)
		}

		s.logger.Info("Запись обновлена",
			slog.String("record_id", existing.ID),
			slog.String("pdf_key", pdfKey),
		)

		copied := *existing
		return &copied, nil
	}

	rec := &model.Record{
		ID:         uuid.New().String(),
		NationalID: nat,
		Serial:     ser,
		PDFKey:     pdfKey,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.byID[rec.ID] = rec
	s.byPair[key] = rec

	if err := s.persistLocked(); err != nil {
		delete(s.byID, rec.ID)
		delete(s.byPair, key)
		return nil, err
	}

	s.logger.Info("Запись создана",
		slog.String("record_id", rec.ID),
		slog.String("pdf_key", pdfKey),
	)

	copied := *rec
	return &copied, nil
}

// Lookup ищет активную запись по паре идентификаторов.
// Неизвестная пара и деактивированная запись неразличимы для
// вызывающего — в обоих случаях возвращается (nil, false).
func (s *Store) Lookup(nationalID, serial string) (*model.Record, bool) {
	nat := ident.Normalize(nationalID)
	ser := ident.Normalize(serial)
	if nat == "" || ser == "" {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byPair[pairKey{nat, ser}]
	if !ok || !rec.Active {
		return nil, false
	}

	copied := *rec
	return &copied, true
}

// ResolveByID ищет активную запись по её id. Используется доставкой.
func (s *Store) ResolveByID(id string) (*model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok || !rec.Active {
		return nil, false
	}

	copied := *rec
	return &copied, true
}

// Deactivate выполняет soft delete: снимает флаг Active, не нарушая
// уникальность пары и не трогая физический файл.
// Возвращает false, если запись не найдена или уже неактивна.
func (s *Store) Deactivate(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || !rec.Active {
		return false, nil
	}

	prev := *rec
	rec.Active = false
	rec.UpdatedAt = time.Now().UTC().UnixMilli()

	if err := s.persistLocked(); err != nil {
		*rec = prev
		return false, err
	}

	s.logger.Info("Запись деактивирована", slog.String("record_id", id))
	return true, nil
}

// List возвращает пагинированный список записей (новые первые)
// и общее количество. limit <= 0 означает «все».
func (s *Store) List(limit, offset int) ([]*model.Record, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*model.Record, 0, len(s.byID))
	for _, rec := range s.byID {
		copied := *rec
		all = append(all, &copied)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt > all[j].CreatedAt
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	if offset >= total {
		return nil, total
	}

	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	return all[offset:end], total
}

// CountByActive возвращает количество записей с указанным флагом Active.
func (s *Store) CountByActive(active bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.byID {
		if rec.Active == active {
			count++
		}
	}
	return count
}

// Referenced возвращает множество ключей файлов, на которые ссылается
// датасет (включая неактивные записи). Используется фоновой очисткой:
// файл, которого здесь нет, — сирота.
func (s *Store) Referenced() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make(map[string]bool, len(s.byID))
	for _, rec := range s.byID {
		if rec.PDFKey != "" {
			refs[rec.PDFKey] = true
		}
	}
	return refs
}

// persistLocked атомарно сохраняет полный датасет на диск.
// Вызывается только под writer-локом.
// Паттерн: JSON → temp файл → fsync → atomic rename.
func (s *Store) persistLocked() error {
	records := make([]*model.Record, 0, len(s.byID))
	for _, rec := range s.byID {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: сериализация: %w", ErrStorage, err)
	}

	tmpPath := s.path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: создание временного файла: %w", ErrStorage, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: запись: %w", ErrStorage, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: fsync: %w", ErrStorage, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: закрытие файла: %w", ErrStorage, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: атомарное переименование: %w", ErrStorage, err)
	}

	return nil
}
