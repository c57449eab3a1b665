package handler

import (
	"net/http"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/service"
	"github.com/medflow/medflow-timesheet/pkg/actor"
	"github.com/medflow/medflow-timesheet/pkg/config"
	"github.com/medflow/medflow-timesheet/pkg/errors"
	"github.com/medflow/medflow-timesheet/pkg/httputil"
	"github.com/medflow/medflow-timesheet/pkg/logger"
)

// CacheHandler exposes manual report cache invalidation
type CacheHandler struct {
	invalidator *service.Invalidator
	auth        config.AuthConfig
	logger      *logger.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(invalidator *service.Invalidator, auth config.AuthConfig, log *logger.Logger) *CacheHandler {
	return &CacheHandler{
		invalidator: invalidator,
		auth:        auth,
		logger:      log,
	}
}

// InvalidateQuery holds the query parameters of the invalidate endpoint
type InvalidateQuery struct {
	Employee string `validate:"required,max=140"`
	Date     string `validate:"required,date"`
}

// Invalidate drops the cached week containing date for an employee. Administrators only.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	if !a.IsAdministrator(h.auth.AdministratorUser, h.auth.AdministratorRole) {
		httputil.Error(w, errors.Forbidden("only administrators can invalidate the report cache"))
		return
	}

	query := InvalidateQuery{
		Employee: r.URL.Query().Get("employee"),
		Date:     r.URL.Query().Get("date"),
	}
	if err := httputil.Validate(query); err != nil {
		httputil.Error(w, err)
		return
	}

	date, _ := calendar.ParseDate(query.Date)
	if err := h.invalidator.Invalidate(r.Context(), query.Employee, date); err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.Info().
		Str("employee_id", query.Employee).
		Str("date", query.Date).
		Str("requested_by", a.String()).
		Msg("report cache invalidated manually")

	httputil.NoContent(w)
}
