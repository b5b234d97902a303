package attendance

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
	router.Post("/attendance", h.Mark)
	router.Patch("/attendance/{id}", h.UpdateStatus)
	router.Delete("/attendance/{id}", h.Delete)
	router.Get("/students/{id}/attendance", h.List)
}

func (h *Handler) Mark(w http.ResponseWriter, r *http.Request) {
	var in MarkInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	records, err := h.service.Mark(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "attendance marked", "date", in.Date, "count", len(records))
	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"marked":  len(records),
		"records": records,
	})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid attendance id")
		return
	}

	var in StatusInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	rec, err := h.service.UpdateStatus(r.Context(), id, in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, rec)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid attendance id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	studentID, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid student id")
		return
	}

	page := httputil.ParsePage(r)
	records, total, err := h.service.List(r.Context(), ListFilter{
		StudentID: studentID,
		Month:     r.URL.Query().Get("month"),
		Limit:     page.Size,
		Offset:    page.Offset(),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, httputil.NewPaginated(records, total, page))
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if apperror.KindOf(err) == apperror.KindInternal {
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
	}
	apperror.Respond(w, err)
}
