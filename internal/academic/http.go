package academic

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
	router.Post("/students/{id}/test-records", h.CreateRecords)
	router.Get("/students/{id}/test-records", h.ListRecords)
	router.Put("/test-records/{id}", h.UpdateRecord)
	router.Delete("/test-records/{id}", h.DeleteRecord)
}

func (h *Handler) CreateRecords(w http.ResponseWriter, r *http.Request) {
	studentID, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid student id")
		return
	}

	var in BulkInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	records, err := h.service.CreateRecords(r.Context(), studentID, in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"created": len(records),
		"records": records,
	})
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	studentID, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid student id")
		return
	}

	page := httputil.ParsePage(r)
	records, total, err := h.service.ListRecords(r.Context(), studentID, page.Size, page.Offset())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, httputil.NewPaginated(records, total, page))
}

func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid test record id")
		return
	}

	var in RecordInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	rec, err := h.service.UpdateRecord(r.Context(), id, in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, rec)
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid test record id")
		return
	}

	if err := h.service.DeleteRecord(r.Context(), id); err != nil {
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
