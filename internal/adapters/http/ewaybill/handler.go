package ewaybill

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"3tcapital/ms_ewaybill_core/internal/core/audit"
	"3tcapital/ms_ewaybill_core/internal/core/ewaybill"
	ctxutil "3tcapital/ms_ewaybill_core/internal/infrastructure/context"
	httperrors "3tcapital/ms_ewaybill_core/internal/infrastructure/http"
	"3tcapital/ms_ewaybill_core/internal/infrastructure/http/middleware"
)

const (
	defaultCallsLimit = 20
	maxCallsLimit     = 100
)

// Service is the e-way bill application service as seen by HTTP.
type Service interface {
	Get(ctx context.Context, id int64) (*ewaybill.Ewaybill, error)
	Content(ctx context.Context, id int64) (string, ewaybill.Payload, error)
	Generate(ctx context.Context, id int64) (*ewaybill.Ewaybill, error)
}

// CallReader lists the IAP calls recorded for an e-way bill.
type CallReader interface {
	FindByEwaybill(ctx context.Context, ewaybillID int64, limit int) ([]audit.ProviderCall, error)
}

// Handler bridges HTTP traffic with the e-way bill application service.
type Handler struct {
	service Service
	calls   CallReader // nil when auditing is disabled
	log     *slog.Logger
}

// NewHandler creates a new e-way bill HTTP handler. calls may be nil.
func NewHandler(service Service, calls CallReader, log *slog.Logger) *Handler {
	return &Handler{service: service, calls: calls, log: log}
}

// ContentResponse is the body of GET /api/v1/ewaybills/{id}/content.
type ContentResponse struct {
	Content string           `json:"content"`
	Payload ewaybill.Payload `json:"payload"`
}

// ProviderCall is one row of GET /api/v1/ewaybills/{id}/provider-calls.
type ProviderCall struct {
	CorrelationID  string    `json:"correlationId"`
	Operation      string    `json:"operation"`
	ResponseStatus *int      `json:"responseStatus"`
	DurationMs     int64     `json:"durationMs"`
	Failed         bool      `json:"failed"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Get handles GET /api/v1/ewaybills/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, e, h.log)
}

// Content handles GET /api/v1/ewaybills/{id}/content.
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	content, payload, err := h.service.Content(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, ContentResponse{Content: content, Payload: payload}, h.log)
}

// Generate handles POST /api/v1/ewaybills/{id}/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	h.log.Info("E-way bill generation requested",
		"ewaybill_id", id,
		"subject", middleware.Subject(r.Context()),
		"correlation_id", ctxutil.GetCorrelationID(r.Context()),
	)

	e, err := h.service.Generate(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, e, h.log)
}

// ProviderCalls handles GET /api/v1/ewaybills/{id}/provider-calls.
func (h *Handler) ProviderCalls(w http.ResponseWriter, r *http.Request) {
	if h.calls == nil {
		httperrors.WriteError(w, http.StatusServiceUnavailable, "Provider call audit is disabled", nil, h.log)
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	limit := defaultCallsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxCallsLimit {
			httperrors.WriteError(w, http.StatusBadRequest, "Invalid request",
				[]string{"limit must be an integer between 1 and " + strconv.Itoa(maxCallsLimit)}, h.log)
			return
		}
		limit = parsed
	}

	calls, err := h.calls.FindByEwaybill(r.Context(), id, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]ProviderCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, ProviderCall{
			CorrelationID:  c.CorrelationID,
			Operation:      c.Operation,
			ResponseStatus: c.ResponseStatus,
			DurationMs:     c.DurationMs,
			Failed:         c.Failed(),
			ErrorMessage:   c.ErrorMessage,
			CreatedAt:      c.CreatedAt,
		})
	}
	httperrors.WriteJSON(w, http.StatusOK, out, h.log)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httperrors.WriteError(w, http.StatusBadRequest, "Invalid request", []string{"id must be a positive integer"}, h.log)
		return 0, false
	}
	return id, true
}

// writeServiceError maps domain errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message, errs := describeError(err)
	if status == http.StatusInternalServerError {
		h.logInternal(r, err)
	}
	httperrors.WriteError(w, status, message, errs, h.log)
}

func (h *Handler) logInternal(r *http.Request, err error) {
	h.log.Error("E-way bill request failed",
		"path", r.URL.Path,
		"correlation_id", ctxutil.GetCorrelationID(r.Context()),
		"error", err,
	)
}

// describeError returns the status, message and details reported for err.
func describeError(err error) (int, string, []string) {
	var genErr *ewaybill.Error
	switch {
	case errors.Is(err, ewaybill.ErrNotFound):
		return http.StatusNotFound, "E-way bill not found", nil
	case errors.Is(err, ewaybill.ErrLocked):
		return http.StatusConflict, "E-way bill is locked", []string{ewaybill.ErrLocked.Error()}
	case errors.Is(err, ewaybill.ErrNotPending):
		return http.StatusConflict, "E-way bill cannot be generated", []string{err.Error()}
	case errors.As(err, &genErr):
		return describeGenerationError(genErr)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Timed out waiting for the E-Way Bill service", nil
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "Request cancelled before the e-way bill was generated", nil
	default:
		return http.StatusInternalServerError, "Internal error", nil
	}
}

func describeGenerationError(err *ewaybill.Error) (int, string, []string) {
	switch err.Kind {
	case ewaybill.KindConfiguration:
		return http.StatusBadRequest, "Invalid e-way bill configuration", err.Messages()
	case ewaybill.KindCredential:
		return http.StatusBadRequest, "Invalid E-Way Bill service credentials", withCodes(err)
	case ewaybill.KindWaitingForIRN:
		return http.StatusConflict, "Waiting for IRN generation", err.Messages()
	default:
		return http.StatusBadGateway, "E-way bill rejected", withCodes(err)
	}
}

func withCodes(err *ewaybill.Error) []string {
	out := make([]string, 0, len(err.Entries))
	for _, entry := range err.Entries {
		if entry.Code == "" {
			out = append(out, entry.Message)
			continue
		}
		out = append(out, "["+entry.Code+"] "+entry.Message)
	}
	return out
}
