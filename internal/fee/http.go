package fee

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"school-service/common/httputil"
	"school-service/internal/apperror"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/payments", h.RecordPayment)
	router.Get("/payments", h.ListPayments)
	router.Delete("/payments/{id}", h.DeletePayment)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	result, err := h.service.Record(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "fee payment recorded",
		"student_id", in.StudentID,
		"payment_id", result.Payment.ID,
		"created", result.Created,
	)

	code := http.StatusOK
	if result.Created {
		code = http.StatusCreated
	}
	httputil.RespondWithJSON(w, code, result)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := httputil.ParsePage(r)

	filter := ListFilter{
		Status:   query.Get("status"),
		Month:    query.Get("month"),
		Ordering: query.Get("ordering"),
		Limit:    page.Size,
		Offset:   page.Offset(),
	}
	if raw := query.Get("student"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid student id")
			return
		}
		filter.StudentID = id
	}

	payments, total, err := h.service.ListPayments(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, httputil.NewPaginated(payments, total, page))
}

func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid payment id")
		return
	}

	if err := h.service.DeletePayment(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if apperror.KindOf(err) == apperror.KindInternal {
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
	}
	apperror.Respond(w, err)
}
