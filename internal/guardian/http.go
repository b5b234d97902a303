package guardian

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
	router.Get("/guardians", h.ListGuardians)
	router.Post("/guardians", h.CreateGuardian)
	router.Get("/guardians/{id}", h.GetGuardian)
	router.Put("/guardians/{id}", h.UpdateGuardian)
	router.Delete("/guardians/{id}", h.DeleteGuardian)
}

func (h *Handler) ListGuardians(w http.ResponseWriter, r *http.Request) {
	page := httputil.ParsePage(r)
	guardians, total, err := h.service.ListGuardians(r.Context(), ListFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  page.Size,
		Offset: page.Offset(),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, httputil.NewPaginated(guardians, total, page))
}

func (h *Handler) CreateGuardian(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	h.logger.InfoContext(r.Context(), "creating guardian", "cnic", in.CNIC)
	g, err := h.service.CreateGuardian(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusCreated, g)
}

func (h *Handler) GetGuardian(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid guardian id")
		return
	}

	detail, err := h.service.GetGuardian(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, detail)
}

func (h *Handler) UpdateGuardian(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid guardian id")
		return
	}

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	g, err := h.service.UpdateGuardian(r.Context(), id, in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, g)
}

func (h *Handler) DeleteGuardian(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid guardian id")
		return
	}

	h.logger.InfoContext(r.Context(), "deleting guardian", "guardian_id", id)
	if err := h.service.DeleteGuardian(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if apperror.KindOf(err) == apperror.KindInternal {
		h.logger.ErrorContext(r.Context(), "guardian request failed", "error", err)
	}
	apperror.Respond(w, err)
}
