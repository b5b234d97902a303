package reporting

import (
	"log/slog"
	"net/http"
	"strconv"

	"school-service/common/httputil"
	"school-service/internal/apperror"
	"school-service/internal/metrics"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	engine  *Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewHandler(engine *Engine, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		engine:  engine,
		logger:  logger,
		metrics: m,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/dashboard", h.Dashboard)
	router.Get("/reports/finance", h.MonthlyFinance)
	router.Get("/reports/class-standings", h.ClassStandings)
	router.Get("/students/{id}/academic-summary", h.AcademicSummary)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.engine.DashboardSnapshot(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.metrics.RecordReportServed(r.Context(), "dashboard")
	httputil.RespondWithJSON(w, http.StatusOK, d)
}

func (h *Handler) MonthlyFinance(w http.ResponseWriter, r *http.Request) {
	month, ok := optionalInt(r, "month")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "month must be a number")
		return
	}
	year, ok := optionalInt(r, "year")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "year must be a number")
		return
	}

	summary, err := h.engine.MonthlyFinanceSummary(r.Context(), month, year)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.metrics.RecordReportServed(r.Context(), "monthly_finance")
	httputil.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) AcademicSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithErrorKind(w, http.StatusBadRequest, string(apperror.KindValidation), "invalid student id")
		return
	}

	summary, err := h.engine.AcademicSummary(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.metrics.RecordReportServed(r.Context(), "academic_summary")
	httputil.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) ClassStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.engine.ClassStandings(r.Context(), r.URL.Query().Get("grade"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.metrics.RecordReportServed(r.Context(), "class_standings")
	httputil.RespondWithJSON(w, http.StatusOK, standings)
}

func optionalInt(r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if apperror.KindOf(err) == apperror.KindInternal {
		h.logger.ErrorContext(r.Context(), "report failed", "path", r.URL.Path, "error", err)
	}
	apperror.Respond(w, err)
}
