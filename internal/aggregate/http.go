package aggregate

import (
	"log/slog"
	"net/http"

	"school-service/common/httputil"
	"school-service/internal/apperror"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	maintainer *Maintainer
	logger     *slog.Logger
}

func NewHandler(maintainer *Maintainer, logger *slog.Logger) *Handler {
	return &Handler{
		maintainer: maintainer,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/students/{id}/recompute", h.Recompute)
}

func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid student id")
		return
	}

	snap, err := h.maintainer.Resync(r.Context(), id)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindInternal {
			h.logger.ErrorContext(r.Context(), "resync failed", "student_id", id, "error", err)
		}
		apperror.Respond(w, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, snap)
}
