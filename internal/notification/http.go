package notification

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"school-service/common/httputil"
	"school-service/internal/apperror"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/messages", h.SendMessage)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid request body")
		return
	}

	result, err := h.service.Send(r.Context(), req)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindInternal {
			h.logger.ErrorContext(r.Context(), "failed to queue messages", "error", err)
		}
		apperror.Respond(w, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusAccepted, result)
}
