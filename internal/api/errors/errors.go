// Пакет errors — конструкторы стандартных ошибок HTTP API edocs.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // конфликт имени со stdlib допустим внутри internal/api

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок API.
const (
	// CodeValidationError — некорректные входные данные клиента.
	CodeValidationError = "VALIDATION_ERROR"
	// CodeNotFound — ресурс не найден. Никогда не уточняет,
	// существовала ли запись раньше.
	CodeNotFound = "NOT_FOUND"
	// CodeForbidden — токен доставки отсутствует, не декодируется
	// или выдан для другой записи.
	CodeForbidden = "FORBIDDEN"
	// CodeLinkExpired — окно валидности ссылки истекло.
	CodeLinkExpired = "LINK_EXPIRED"
	// CodeFileTooLarge — загружаемый файл превышает лимит.
	CodeFileTooLarge = "FILE_TOO_LARGE"
	// CodeIntegrityError — запись ссылается на отсутствующий файл.
	CodeIntegrityError = "INTEGRITY_ERROR"
	// CodeStorageError — ошибка долговременного хранилища.
	CodeStorageError = "STORAGE_ERROR"
	// CodeUpstreamError — целевой сервис недоступен (gateway).
	CodeUpstreamError = "UPSTREAM_ERROR"
	// CodeInternalError — прочие внутренние ошибки.
	CodeInternalError = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Forbidden — 403 токен отсутствует, невалиден или не для этой записи.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// LinkExpired — 403 срок действия ссылки истёк.
func LinkExpired(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeLinkExpired, message)
}

// FileTooLarge — 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message)
}

// IntegrityError — 500 нарушение целостности данных.
func IntegrityError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeIntegrityError, message)
}

// StorageError — 500 ошибка долговременного хранилища.
func StorageError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeStorageError, message)
}

// UpstreamError — 502 целевой сервис недоступен.
func UpstreamError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeUpstreamError, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
