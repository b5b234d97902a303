package enrollment

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"school-service/common/httputil"
	"school-service/internal/apperror"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	coordinator *Coordinator
	logger      *slog.Logger
}

func NewHandler(coordinator *Coordinator, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/students/enroll", h.Enroll)
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body: "+err.Error())
		return
	}

	result, err := h.coordinator.Enroll(r.Context(), req)
	if err != nil {
		switch apperror.KindOf(err) {
		case apperror.KindInternal:
			h.logger.ErrorContext(r.Context(), "enrollment failed", "cnic", req.Guardian.CNIC, "error", err)
		default:
			h.logger.InfoContext(r.Context(), "enrollment rejected", "cnic", req.Guardian.CNIC, "error", err)
		}
		apperror.Respond(w, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, result)
}
