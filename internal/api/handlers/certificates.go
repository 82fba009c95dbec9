// certificates.go — HTTP handlers регистрации и администрирования
// записей сертификатов: upload, list, deactivate.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/edocs/internal/api/errors"
	"github.com/bigkaa/edocs/internal/api/middleware"
	"github.com/bigkaa/edocs/internal/domain/model"
	"github.com/bigkaa/edocs/internal/service"
	"github.com/bigkaa/edocs/internal/storage/recordstore"
)

// multipartMemory — буфер парсинга multipart form (поля в памяти,
// файл остаётся стримом).
const multipartMemory = 4 << 20

// CertificatesHandler — обработчик endpoints записей сертификатов.
type CertificatesHandler struct {
	uploadSvc   *service.UploadService
	records     *recordstore.Store
	maxFileSize int64
}

// NewCertificatesHandler создаёт обработчик записей сертификатов.
func NewCertificatesHandler(
	uploadSvc *service.UploadService,
	records *recordstore.Store,
	maxFileSize int64,
) *CertificatesHandler {
	return &CertificatesHandler{
		uploadSvc:   uploadSvc,
		records:     records,
		maxFileSize: maxFileSize,
	}
}

// certificateDTO — представление записи в API списка.
// Ключ файла хранилища наружу не отдаётся.
type certificateDTO struct {
	ID         string `json:"id"`
	NationalID string `json:"nationalId"`
	Serial     string `json:"serial"`
	Active     bool   `json:"active"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

// Upload обрабатывает POST /api/certificates.
// Multipart form: pdf (файл, обязательно), nationalId, serial.
func (h *CertificatesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Лимит общего тела запроса: файл + запас на поля формы
	if h.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		// Фактический размер тела превысил лимит: это не проблема
		// формата формы, а превышение размера
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			apierrors.FileTooLarge(w,
				fmt.Sprintf("Тело запроса превышает максимум %d байт", maxBytesErr.Limit))
			return
		}
		apierrors.ValidationError(w, "Некорректная multipart-форма")
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'pdf' обязательно")
		return
	}
	defer file.Close()

	result, uploadErr := h.uploadSvc.Upload(service.UploadParams{
		Reader:      file,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		NationalID:  r.FormValue("nationalId"),
		Serial:      r.FormValue("serial"),
	})
	if uploadErr != nil {
		apierrors.WriteError(w, uploadErr.StatusCode, uploadErr.Code, uploadErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"id": result.ID,
	})
}

// List обрабатывает GET /api/certificates.
// Пагинация: limit (по умолчанию 50, максимум 1000), offset.
func (h *CertificatesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			apierrors.ValidationError(w, "Параметр limit должен быть от 1 до 1000")
			return
		}
		limit = n
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apierrors.ValidationError(w, "Параметр offset не может быть отрицательным")
			return
		}
		offset = n
	}

	items, total := h.records.List(limit, offset)

	dtos := make([]certificateDTO, 0, len(items))
	for _, rec := range items {
		dtos = append(dtos, recordToDTO(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":    dtos,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"has_more": offset+limit < total,
	})
}

// Deactivate обрабатывает DELETE /api/certificates/{id}.
// Soft delete: снимает только флаг active, запись и файл остаются.
func (h *CertificatesHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ok, err := h.records.Deactivate(id)
	if err != nil {
		apierrors.StorageError(w, "Ошибка сохранения записи")
		return
	}
	if !ok {
		apierrors.NotFound(w, "Запись не найдена")
		return
	}

	middleware.RecordsTotal.WithLabelValues("true").Set(float64(h.records.CountByActive(true)))
	middleware.RecordsTotal.WithLabelValues("false").Set(float64(h.records.CountByActive(false)))

	w.WriteHeader(http.StatusNoContent)
}

// recordToDTO преобразует доменную запись в API-формат.
func recordToDTO(rec *model.Record) certificateDTO {
	return certificateDTO{
		ID:         rec.ID,
		NationalID: rec.NationalID,
		Serial:     rec.Serial,
		Active:     rec.Active,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

// writeJSON — вспомогательная функция записи JSON-ответа.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
