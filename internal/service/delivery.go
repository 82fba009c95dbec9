// delivery.go — сервис доставки PDF по токену доступа.
//
// Цепочка ворот на каждую попытку доставки, обрыв на первом отказе:
// токен присутствует → декодируется → совпадает с id из пути →
// окно не истекло → запись активна → файл на диске → стриминг.
// Отказы токена — 403 с обобщённым сообщением (детальная причина
// только в серверном логе); пропавшая запись — 404; валидная запись
// без файла — 500, нарушение целостности данных.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/edocs/internal/api/errors"
	"github.com/bigkaa/edocs/internal/api/middleware"
	"github.com/bigkaa/edocs/internal/storage/filestore"
	"github.com/bigkaa/edocs/internal/storage/recordstore"
	"github.com/bigkaa/edocs/internal/token"
)

// deliveryFilename — имя файла в Content-Disposition ответа.
const deliveryFilename = "document.pdf"

// DeliveryError — отказ доставки с HTTP-кодом.
type DeliveryError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DeliveryService — сервис доставки файлов.
type DeliveryService struct {
	records *recordstore.Store
	files   *filestore.FileStore
	codec   *token.Codec
	logger  *slog.Logger
}

// NewDeliveryService создаёт сервис доставки.
func NewDeliveryService(
	records *recordstore.Store,
	files *filestore.FileStore,
	codec *token.Codec,
	logger *slog.Logger,
) *DeliveryService {
	return &DeliveryService{
		records: records,
		files:   files,
		codec:   codec,
		logger:  logger.With(slog.String("component", "delivery_service")),
	}
}

// Serve проверяет токен и отдаёт PDF через http.ServeContent.
// recordID — id записи из пути, rawToken — токен из query-параметра.
// Стриминг не буферизует файл целиком; обрыв соединения клиентом
// прерывает передачу и освобождает дескриптор.
func (s *DeliveryService) Serve(w http.ResponseWriter, r *http.Request, recordID, rawToken string) *DeliveryError {
	// 1. Токен присутствует
	if rawToken == "" {
		return s.reject(recordID, "токен отсутствует", &DeliveryError{
			StatusCode: 403,
			Code:       apierrors.CodeForbidden,
			Message:    "Доступ запрещён",
		})
	}

	// 2. Токен декодируется и подписан сервером
	claims, err := s.codec.Decode(rawToken)
	if err != nil {
		return s.reject(recordID, "токен не декодируется", &DeliveryError{
			StatusCode: 403,
			Code:       apierrors.CodeForbidden,
			Message:    "Доступ запрещён",
		})
	}

	// 3-4. Привязка к записи и окно валидности
	if err := s.codec.Validate(claims, recordID, s.codec.Now()); err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return s.reject(recordID, "окно валидности истекло", &DeliveryError{
				StatusCode: 403,
				Code:       apierrors.CodeLinkExpired,
				Message:    "Срок действия ссылки истёк",
			})
		}
		// Несовпадение записи или iat из будущего
		return s.reject(recordID, err.Error(), &DeliveryError{
			StatusCode: 403,
			Code:       apierrors.CodeForbidden,
			Message:    "Доступ запрещён",
		})
	}

	// 5. Запись всё ещё существует и активна
	rec, ok := s.records.ResolveByID(recordID)
	if !ok {
		return s.reject(recordID, "запись не найдена или неактивна", &DeliveryError{
			StatusCode: 404,
			Code:       apierrors.CodeNotFound,
			Message:    "Не найдено",
		})
	}

	// 6. Файл присутствует на диске
	file, err := s.files.Open(rec.PDFKey)
	if err != nil {
		// Валидная запись без файла — не «не найдено», а повреждение
		// данных, требующее внимания оператора.
		middleware.OperationsTotal.WithLabelValues("delivery", "integrity_fault").Inc()
		s.logger.Error("Нарушение целостности: запись без файла",
			slog.String("record_id", recordID),
			slog.String("pdf_key", rec.PDFKey),
			slog.String("error", err.Error()),
		)
		return &DeliveryError{
			StatusCode: 500,
			Code:       apierrors.CodeIntegrityError,
			Message:    "Файл недоступен",
		}
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		s.logger.Error("Ошибка получения stat файла",
			slog.String("record_id", recordID),
			slog.String("error", err.Error()),
		)
		return &DeliveryError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения файла",
		}
	}

	// 7. Стриминг
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", deliveryFilename))
	w.Header().Set("Cache-Control", "no-store")

	http.ServeContent(w, r, deliveryFilename, stat.ModTime(), file)

	middleware.OperationsTotal.WithLabelValues("delivery", "success").Inc()
	s.logger.Debug("Файл доставлен",
		slog.String("record_id", recordID),
		slog.Int64("size", stat.Size()),
	)

	return nil
}

// reject логирует детальную причину отказа и возвращает клиентскую ошибку.
func (s *DeliveryService) reject(recordID, reason string, e *DeliveryError) *DeliveryError {
	middleware.OperationsTotal.WithLabelValues("delivery", "rejected").Inc()
	s.logger.Warn("Доставка отклонена",
		slog.String("record_id", recordID),
		slog.String("reason", reason),
	)
	return e
}
