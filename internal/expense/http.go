package expense

import (
	"encoding/json"
	"log/slog"
	"net/http"

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
	router.Route("/expenses", func(r chi.Router) {
		r.Get("/", h.ListExpenses)
		r.Post("/", h.CreateExpense)
		r.Get("/{id}", h.GetExpense)
		r.Put("/{id}", h.UpdateExpense)
		r.Delete("/{id}", h.DeleteExpense)
	})
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := httputil.ParsePage(r)

	expenses, total, err := h.service.ListExpenses(r.Context(), ListFilter{
		Category: query.Get("category"),
		Status:   query.Get("status"),
		Month:    query.Get("month"),
		Limit:    page.Size,
		Offset:   page.Offset(),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, httputil.NewPaginated(expenses, total, page))
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	e, err := h.service.CreateExpense(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "expense created", "expense_id", e.ID, "category", e.Category)
	httputil.RespondWithJSON(w, http.StatusCreated, e)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid expense id")
		return
	}

	e, err := h.service.GetExpense(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, e)
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid expense id")
		return
	}

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	e, err := h.service.UpdateExpense(r.Context(), id, in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid expense id")
		return
	}

	if err := h.service.DeleteExpense(r.Context(), id); err != nil {
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
