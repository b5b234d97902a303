package student

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"school-service/common/httputil"
	"school-service/internal/apperror"
	"school-service/internal/metrics"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewHandler(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/students", h.CreateStudent)
	router.Get("/students", h.ListStudents)
	router.Get("/students/{id}", h.GetStudent)
	router.Patch("/students/{id}", h.UpdateStudent)
	router.Delete("/students/{id}", h.DeleteStudent)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	h.logger.InfoContext(r.Context(), "creating student", "guardian_id", in.GuardianID)
	created, err := h.service.CreateStudent(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordStudentsEnrolled(r.Context(), 1)

	httputil.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := httputil.ParsePage(r)

	filter := ListFilter{
		Grade:    query.Get("grade"),
		Search:   query.Get("search"),
		Ordering: query.Get("ordering"),
		Limit:    page.Size,
		Offset:   page.Offset(),
	}
	if raw := query.Get("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "is_active must be true or false")
			return
		}
		filter.IsActive = &active
	}

	students, total, err := h.service.ListStudents(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, httputil.NewPaginated(students, total, page))
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid student id")
		return
	}

	found, err := h.service.GetStudentByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, found)
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid student id")
		return
	}

	var in PatchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	h.logger.InfoContext(r.Context(), "updating student", "student_id", id)
	updated, err := h.service.UpdateStudent(r.Context(), id, in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid student id")
		return
	}

	h.logger.InfoContext(r.Context(), "deleting student", "student_id", id)
	if err := h.service.DeleteStudent(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch apperror.KindOf(err) {
	case apperror.KindNotFound, apperror.KindValidation:
		h.logger.InfoContext(r.Context(), "student request rejected", "error", err)
	default:
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
	}
	apperror.Respond(w, err)
}
