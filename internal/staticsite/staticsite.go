// Пакет staticsite — обнаружение и раздача статики SPA.
//
// Каталог фронтенда не фиксирован: ищем стандартные имена сборок
// (public, dist, build), при неудаче — мелкое сканирование на каталог
// с index.html. SPA fallback: любой не-API путь без файла на диске
// получает index.html, маршрутизация остаётся на клиенте.
package staticsite

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// candidates — стандартные имена каталогов сборки фронтенда,
// в порядке приоритета.
var candidates = []string{"public", "dist", "build", "."}

// FindDir ищет каталог статики относительно root.
// Возвращает пустую строку, если статика не найдена — сервис тогда
// работает в режиме чистого API.
func FindDir(root string) string {
	for _, name := range candidates {
		dir := filepath.Join(root, name)
		if hasIndex(dir) {
			return dir
		}
	}

	// Мелкое сканирование: каталоги первого уровня
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if hasIndex(dir) {
			return dir
		}
	}

	return ""
}

// hasIndex проверяет наличие index.html в каталоге.
func hasIndex(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "index.html"))
	return err == nil && !info.IsDir()
}

// Handler возвращает обработчик раздачи статики с SPA fallback.
// Fallback действует только для GET/HEAD вне /api/ и /files/:
// незнакомые API-пути и пути доставки, провалившиеся сюда через
// NotFound роутера, получают 404, а не index.html.
func Handler(dir string, logger *slog.Logger) http.Handler {
	if dir == "" {
		logger.Warn("Каталог статики не найден, режим чистого API")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
	}

	logger.Info("Статика подключена", slog.String("dir", dir))

	fileServer := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// API и доставка файлов статикой не обслуживаются
		if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/files/") {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.NotFound(w, r)
			return
		}

		// Защита от traversal: путь чистится до проверки на диске
		reqPath := filepath.Clean(strings.TrimPrefix(r.URL.Path, "/"))
		if reqPath == "." || strings.HasPrefix(reqPath, "..") {
			http.ServeFile(w, r, index)
			return
		}

		if _, err := os.Stat(filepath.Join(dir, reqPath)); err != nil {
			// SPA fallback
			http.ServeFile(w, r, index)
			return
		}

		fileServer.ServeHTTP(w, r)
	})
}
