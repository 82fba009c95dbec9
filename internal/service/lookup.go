// lookup.go — сервис поиска сертификата и выпуска ссылки доставки.
package service

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	apierrors "github.com/bigkaa/edocs/internal/api/errors"
	"github.com/bigkaa/edocs/internal/api/middleware"
	"github.com/bigkaa/edocs/internal/domain/ident"
	"github.com/bigkaa/edocs/internal/storage/recordstore"
	"github.com/bigkaa/edocs/internal/token"
)

// LookupResult — результат поиска.
// Exists=false не раскрывает причину промаха: неизвестная пара и
// деактивированная запись выглядят одинаково.
type LookupResult struct {
	Exists      bool   `json:"exists"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// LookupError — ошибка поиска с HTTP-кодом.
// Возникает только на невалидном вводе: промах — не ошибка.
type LookupError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LookupService — сервис поиска сертификатов.
type LookupService struct {
	records *recordstore.Store
	codec   *token.Codec
	baseURL string
	logger  *slog.Logger
}

// NewLookupService создаёт сервис поиска.
// baseURL — внешний базовый URL сервиса, используется при сборке
// ссылки доставки; завершающий слэш отбрасывается.
func NewLookupService(
	records *recordstore.Store,
	codec *token.Codec,
	baseURL string,
	logger *slog.Logger,
) *LookupService {
	return &LookupService{
		records: records,
		codec:   codec,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With(slog.String("component", "lookup_service")),
	}
}

// Lookup ищет активную запись по паре идентификаторов.
//
// Пустой после нормализации идентификатор — ошибка валидации (проблема
// ввода клиента), в отличие от легитимного промаха {exists:false}.
// Найденная запись получает свежий токен доступа и ссылку доставки.
func (s *LookupService) Lookup(rawNationalID, rawSerial string) (*LookupResult, *LookupError) {
	if ident.Normalize(rawNationalID) == "" || ident.Normalize(rawSerial) == "" {
		middleware.OperationsTotal.WithLabelValues("lookup", "rejected").Inc()
		return nil, &LookupError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Не заданы идентификаторы сертификата",
		}
	}

	rec, ok := s.records.Lookup(rawNationalID, rawSerial)
	if !ok {
		middleware.OperationsTotal.WithLabelValues("lookup", "miss").Inc()
		return &LookupResult{Exists: false}, nil
	}

	tok, err := s.codec.Mint(rec.ID)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("lookup", "error").Inc()
		s.logger.Error("Ошибка выпуска токена",
			slog.String("record_id", rec.ID),
			slog.String("error", err.Error()),
		)
		return nil, &LookupError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Внутренняя ошибка",
		}
	}

	middleware.OperationsTotal.WithLabelValues("lookup", "hit").Inc()
	s.logger.Debug("Ссылка доставки выпущена", slog.String("record_id", rec.ID))

	return &LookupResult{
		Exists:      true,
		DownloadURL: fmt.Sprintf("%s/files/%s?t=%s", s.baseURL, rec.ID, url.QueryEscape(tok)),
	}, nil
}
