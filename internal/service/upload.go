// Пакет service — бизнес-логика edocs.
// upload.go — сервис регистрации сертификата: приём PDF и upsert записи.
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"

	apierrors "github.com/bigkaa/edocs/internal/api/errors"
	"github.com/bigkaa/edocs/internal/api/middleware"
	"github.com/bigkaa/edocs/internal/domain/model"
	"github.com/bigkaa/edocs/internal/storage/filestore"
	"github.com/bigkaa/edocs/internal/storage/recordstore"
)

// pdfContentType — единственный допустимый заявленный MIME-тип загрузки.
const pdfContentType = "application/pdf"

// UploadParams — параметры регистрации сертификата.
type UploadParams struct {
	// Reader — поток данных PDF-файла
	Reader io.Reader
	// ContentType — заявленный MIME-тип части multipart
	ContentType string
	// Size — заявленный размер файла в байтах
	Size int64
	// NationalID — национальный идентификатор (сырой ввод)
	NationalID string
	// Serial — серийный номер сертификата (сырой ввод)
	Serial string
}

// UploadError — ошибка регистрации с HTTP-кодом.
type UploadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UploadService — сервис регистрации сертификатов.
type UploadService struct {
	files       *filestore.FileStore
	records     *recordstore.Store
	maxFileSize int64
	logger      *slog.Logger
}

// NewUploadService создаёт сервис регистрации.
func NewUploadService(
	files *filestore.FileStore,
	records *recordstore.Store,
	maxFileSize int64,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		files:       files,
		records:     records,
		maxFileSize: maxFileSize,
		logger:      logger.With(slog.String("component", "upload_service")),
	}
}

// Upload принимает PDF и создаёт либо обновляет запись сертификата.
//
// Поток:
//  1. Проверка заявленного типа (application/pdf) и размера
//  2. Streaming-сохранение файла (temp → fsync → rename)
//  3. Upsert записи; вытесненный файл уходит в очередь очистки
//
// Любая ошибка после шага 2 удаляет только что записанный файл —
// осиротевшие загрузки не остаются на диске.
func (s *UploadService) Upload(params UploadParams) (*model.Record, *UploadError) {
	// 1. Заявленный тип: принимаем только PDF
	if !isPDF(params.ContentType) {
		middleware.OperationsTotal.WithLabelValues("upload", "rejected").Inc()
		return nil, &UploadError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Ожидается файл application/pdf",
		}
	}

	if s.maxFileSize > 0 && params.Size > s.maxFileSize {
		middleware.OperationsTotal.WithLabelValues("upload", "rejected").Inc()
		return nil, &UploadError{
			StatusCode: 413,
			Code:       apierrors.CodeFileTooLarge,
			Message:    fmt.Sprintf("Размер файла %d байт превышает максимум %d байт", params.Size, s.maxFileSize),
		}
	}

	// 2. Сохраняем файл на диск
	saved, err := s.files.SavePDF(params.Reader)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		s.logger.Error("Ошибка сохранения файла", slog.String("error", err.Error()))
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeStorageError,
			Message:    "Ошибка сохранения файла на диск",
		}
	}

	// 3. Upsert записи
	rec, err := s.records.Upsert(params.NationalID, params.Serial, saved.Name)
	if err != nil {
		// Файл уже на диске — убираем, прежде чем вернуть ошибку
		if delErr := s.files.Delete(saved.Name); delErr != nil {
			s.logger.Warn("Не удалось удалить осиротевший файл",
				slog.String("pdf_key", saved.Name),
				slog.String("error", delErr.Error()),
			)
		}

		if errors.Is(err, recordstore.ErrInvalidKey) {
			middleware.OperationsTotal.WithLabelValues("upload", "rejected").Inc()
			return nil, &UploadError{
				StatusCode: 400,
				Code:       apierrors.CodeValidationError,
				Message:    "Не заданы идентификаторы сертификата",
			}
		}

		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		s.logger.Error("Ошибка сохранения записи",
			slog.String("pdf_key", saved.Name),
			slog.String("error", err.Error()),
		)
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeStorageError,
			Message:    "Ошибка сохранения записи",
		}
	}

	middleware.OperationsTotal.WithLabelValues("upload", "success").Inc()
	middleware.RecordsTotal.WithLabelValues("true").Set(float64(s.records.CountByActive(true)))
	middleware.RecordsTotal.WithLabelValues("false").Set(float64(s.records.CountByActive(false)))

	s.logger.Info("Сертификат зарегистрирован",
		slog.String("record_id", rec.ID),
		slog.String("pdf_key", saved.Name),
		slog.Int64("size", saved.Size),
		slog.String("checksum", saved.Checksum),
	)

	return rec, nil
}

// isPDF проверяет заявленный MIME-тип, игнорируя параметры (charset и т.п.).
func isPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Заголовок без параметров мог не распарситься — сравним как есть
		mediaType = strings.TrimSpace(strings.ToLower(contentType))
	}
	return mediaType == pdfContentType
}
