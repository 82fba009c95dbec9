// lookup.go — HTTP handler поиска сертификата по паре идентификаторов.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bigkaa/edocs/internal/api/errors"
	"github.com/bigkaa/edocs/internal/service"
)

// maxLookupBody — лимит тела запроса поиска.
const maxLookupBody = 64 << 10

// LookupHandler — обработчик endpoint поиска.
type LookupHandler struct {
	lookupSvc *service.LookupService
}

// NewLookupHandler создаёт обработчик поиска.
func NewLookupHandler(lookupSvc *service.LookupService) *LookupHandler {
	return &LookupHandler{lookupSvc: lookupSvc}
}

// lookupRequest — тело запроса POST /api/lookup.
type lookupRequest struct {
	NationalID string `json:"nationalId"`
	Serial     string `json:"serial"`
}

// Lookup обрабатывает POST /api/lookup.
// Промах — это 200 {exists:false}, а не 404: отсутствие записи не
// раскрывается отличимым статусом.
func (h *LookupHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLookupBody)

	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	result, lookupErr := h.lookupSvc.Lookup(req.NationalID, req.Serial)
	if lookupErr != nil {
		errors.WriteError(w, lookupErr.StatusCode, lookupErr.Code, lookupErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
