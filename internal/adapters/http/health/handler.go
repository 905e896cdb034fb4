package health

import (
	"log/slog"
	"net/http"

	apphealth "3tcapital/ms_ewaybill_core/internal/application/health"
	corehealth "3tcapital/ms_ewaybill_core/internal/core/health"
	httpjson "3tcapital/ms_ewaybill_core/internal/infrastructure/http"
)

// Handler bridges HTTP traffic with the health application service.
type Handler struct {
	service *apphealth.Service
	log     *slog.Logger
}

func NewHandler(service *apphealth.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Status answers 503 when a critical dependency is down so orchestrators
// stop routing traffic here.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.service.Status(r.Context())

	code := http.StatusOK
	if status.Status == corehealth.StateDown {
		code = http.StatusServiceUnavailable
	}
	httpjson.WriteJSON(w, code, status, h.log)
}
