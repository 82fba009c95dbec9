package filestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

// TestNew_CreatesDirectory проверяет создание директории данных.
func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	fs, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	if fs.DataDir() != dir {
		t.Errorf("ожидался путь %s, получен %s", dir, fs.DataDir())
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является директорией")
	}
}

// TestSavePDF проверяет сохранение файла с подсчётом SHA-256.
func TestSavePDF(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	content := []byte("%PDF-1.4 тестовое содержимое сертификата")

	result, err := fs.SavePDF(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	// Размер
	if result.Size != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), result.Size)
	}

	// Checksum
	expectedHash := sha256.Sum256(content)
	expectedChecksum := hex.EncodeToString(expectedHash[:])
	if result.Checksum != expectedChecksum {
		t.Errorf("checksum: ожидалось %s, получено %s", expectedChecksum, result.Checksum)
	}

	// Формат имени: {millis}-{12 hex}.pdf
	nameFormat := regexp.MustCompile(`^\d+-[0-9a-f]{12}\.pdf$`)
	if !nameFormat.MatchString(result.Name) {
		t.Errorf("имя файла не соответствует формату: %s", result.Name)
	}

	// Содержимое на диске
	data, err := os.ReadFile(filepath.Join(fs.DataDir(), result.Name))
	if err != nil {
		t.Fatalf("ошибка чтения файла: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("содержимое файла не совпадает")
	}
}

// TestSavePDF_NoTmpFile проверяет, что temp файл удалён после сохранения.
func TestSavePDF_NoTmpFile(t *testing.T) {
	dir := t.TempDir()
	fs, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	result, err := fs.SavePDF(bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	tmpPath := filepath.Join(dir, result.Name+".tmp")
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Error("временный файл не должен существовать")
	}
}

// TestSavePDF_UniqueNames проверяет уникальность сгенерированных имён.
func TestSavePDF_UniqueNames(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		result, err := fs.SavePDF(bytes.NewReader([]byte("data")))
		if err != nil {
			t.Fatalf("ошибка сохранения: %v", err)
		}
		if seen[result.Name] {
			t.Fatalf("повтор имени файла: %s", result.Name)
		}
		seen[result.Name] = true
	}
}

// TestOpen проверяет чтение сохранённого файла.
func TestOpen(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	content := []byte("read test data")
	result, err := fs.SavePDF(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	f, err := fs.Open(result.Name)
	if err != nil {
		t.Fatalf("ошибка открытия для чтения: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}

	if !bytes.Equal(data, content) {
		t.Error("прочитанные данные не совпадают с записанными")
	}
}

// TestOpen_NotFound проверяет ошибку при чтении несуществующего файла.
func TestOpen_NotFound(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	_, err = fs.Open("nonexistent.pdf")
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("ожидалась ErrNotExist, получено %v", err)
	}
}

// TestOpen_RejectsTraversal проверяет отклонение имён с элементами пути.
func TestOpen_RejectsTraversal(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	names := []string{
		"",
		".",
		"..",
		"../etc/passwd",
		"sub/file.pdf",
		`sub\file.pdf`,
		"/etc/passwd",
	}

	for _, name := range names {
		if _, err := fs.Open(name); !errors.Is(err, ErrBadName) {
			t.Errorf("Open(%q): ожидалась ErrBadName, получено %v", name, err)
		}
		if err := fs.Delete(name); !errors.Is(err, ErrBadName) {
			t.Errorf("Delete(%q): ожидалась ErrBadName, получено %v", name, err)
		}
		if fs.Exists(name) {
			t.Errorf("Exists(%q): не должно быть true", name)
		}
	}
}

// TestDelete проверяет удаление файла.
func TestDelete(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	result, err := fs.SavePDF(bytes.NewReader([]byte("delete me")))
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	if err := fs.Delete(result.Name); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}

	if fs.Exists(result.Name) {
		t.Error("файл должен быть удалён")
	}
}

// TestDelete_NotFound проверяет, что удаление несуществующего файла не ошибка.
func TestDelete_NotFound(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	if err := fs.Delete("nonexistent.pdf"); err != nil {
		t.Errorf("удаление несуществующего файла не должно быть ошибкой: %v", err)
	}
}

// TestList проверяет листинг PDF-файлов хранилища.
func TestList(t *testing.T) {
	dir := t.TempDir()
	fs, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	first, err := fs.SavePDF(bytes.NewReader([]byte("one")))
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}
	second, err := fs.SavePDF(bytes.NewReader([]byte("two-2")))
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	// Посторонние файлы в листинг не попадают
	if err := os.WriteFile(filepath.Join(dir, "records.json"), []byte("[]"), 0o644); err != nil {
		t.Fatalf("ошибка записи файла: %v", err)
	}

	files, err := fs.List()
	if err != nil {
		t.Fatalf("ошибка листинга: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("ожидалось 2 файла, получено %d", len(files))
	}

	byName := make(map[string]StoredFile)
	for _, f := range files {
		byName[f.Name] = f
		if !strings.HasSuffix(f.Name, ".pdf") {
			t.Errorf("в листинге только PDF: %s", f.Name)
		}
		if time.Since(f.ModTime) > time.Minute {
			t.Errorf("неожиданное время модификации: %v", f.ModTime)
		}
	}

	if byName[first.Name].Size != 3 {
		t.Errorf("размер %s: ожидалось 3, получено %d", first.Name, byName[first.Name].Size)
	}
	if byName[second.Name].Size != 5 {
		t.Errorf("размер %s: ожидалось 5, получено %d", second.Name, byName[second.Name].Size)
	}
}
