// Пакет filestore — операции с физическими PDF-файлами на диске.
// Обеспечивает streaming-запись с подсчётом SHA-256 на лету,
// безопасное чтение по непрозрачному имени и удаление.
package filestore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Ошибки filestore.
var (
	// ErrBadName — имя файла содержит разделители пути или иные
	// недопустимые элементы. Имя трактуется строго как непрозрачный
	// идентификатор внутри директории данных.
	ErrBadName = fmt.Errorf("недопустимое имя файла")

	// ErrNotExist — файл не найден в хранилище.
	ErrNotExist = os.ErrNotExist
)

// FileStore — управление физическими PDF-файлами на диске.
type FileStore struct {
	// dataDir — корневая директория хранения файлов (ED_DATA_DIR)
	dataDir string
}

// SaveResult — результат сохранения файла на диск.
type SaveResult struct {
	// Name — имя файла в dataDir (ключ хранения)
	Name string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого файла
	Checksum string
}

// New создаёт новый FileStore. Проверяет и создаёт директорию,
// если она не существует.
func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &FileStore{dataDir: dataDir}, nil
}

// SavePDF записывает данные из reader на диск с подсчётом SHA-256 на лету.
// Формат имени файла: {unix-millis}-{12 hex}.pdf.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (fs *FileStore) SavePDF(reader io.Reader) (*SaveResult, error) {
	name := generateName()
	fullPath := filepath.Join(fs.dataDir, name)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256
	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		Name:     name,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает файл хранилища для чтения по его имени.
// Имя — непрозрачный идентификатор: любые разделители пути,
// ".." и пустые имена отклоняются до обращения к диску.
// Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(name string) (*os.File, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(fs.dataDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл %s: %w", name, ErrNotExist)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", name, err)
	}

	return f, nil
}

// Delete удаляет файл с диска. Возвращает nil, если файл уже не существует.
func (fs *FileStore) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(fs.dataDir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", name, err)
	}
	return nil
}

// Exists проверяет существование файла на диске.
func (fs *FileStore) Exists(name string) bool {
	if validateName(name) != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(fs.dataDir, name))
	return err == nil
}

// StoredFile — элемент листинга хранилища.
type StoredFile struct {
	// Name — имя файла в dataDir
	Name string
	// Size — размер в байтах
	Size int64
	// ModTime — время последней модификации
	ModTime time.Time
}

// List возвращает все PDF-файлы директории данных.
// Используется фоновой очисткой для поиска осиротевших файлов.
func (fs *FileStore) List() ([]StoredFile, error) {
	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", fs.dataDir, err)
	}

	var result []StoredFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		result = append(result, StoredFile{
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return result, nil
}

// DataDir возвращает путь к директории данных.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

// validateName проверяет, что имя файла — простое имя без пути.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrBadName
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return ErrBadName
	}
	return nil
}

// generateName генерирует имя файла для хранения на диске.
// Формат: {unix-millis}-{12 hex}.pdf, например 1756500000000-a1b2c3d4e5f6.pdf.
func generateName() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%d-%s.pdf", time.Now().UnixMilli(), hex.EncodeToString(buf))
}
