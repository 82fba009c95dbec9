// delivery.go — HTTP handler выдачи PDF по токенизированной ссылке.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/edocs/internal/api/errors"
	"github.com/bigkaa/edocs/internal/service"
)

// DeliveryHandler — обработчик endpoint доставки файлов.
type DeliveryHandler struct {
	deliverySvc *service.DeliveryService
}

// NewDeliveryHandler создаёт обработчик доставки.
func NewDeliveryHandler(deliverySvc *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliverySvc: deliverySvc}
}

// Serve обрабатывает GET /files/{id}?t=<token>.
// Вся проверка ворот и стриминг — в сервисе доставки; handler только
// извлекает параметры и переводит отказ в JSON-ошибку.
func (h *DeliveryHandler) Serve(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")
	rawToken := r.URL.Query().Get("t")

	if err := h.deliverySvc.Serve(w, r, recordID, rawToken); err != nil {
		errors.WriteError(w, err.StatusCode, err.Code, err.Message)
	}
}
