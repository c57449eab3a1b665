package handler

import (
	"net/http"
	"strconv"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/service"
	"github.com/medflow/medflow-timesheet/pkg/errors"
	"github.com/medflow/medflow-timesheet/pkg/httputil"
	"github.com/medflow/medflow-timesheet/pkg/logger"
)

// ReportHandler handles the weekly report endpoints
type ReportHandler struct {
	service *service.ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

// ReportQuery holds the query parameters of the report endpoint
type ReportQuery struct {
	Employee  string `validate:"omitempty,max=140"`
	StartDate string `validate:"omitempty,date"`
	MaxWeek   int    `validate:"omitempty,min=1"`
}

// GetReport returns the weekly timesheet report
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := ReportQuery{
		Employee:  q.Get("employee"),
		StartDate: q.Get("start_date"),
	}

	if raw := q.Get("max_week"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.Error(w, errors.Validation(map[string]string{"MaxWeek": "must be an integer"}))
			return
		}
		query.MaxWeek = n
	}

	if err := httputil.Validate(query); err != nil {
		httputil.Error(w, err)
		return
	}

	params := service.ReportParams{
		EmployeeID: query.Employee,
		Weeks:      query.MaxWeek,
	}
	if query.StartDate != "" {
		// already validated
		params.StartDate, _ = calendar.ParseDate(query.StartDate)
	}

	report, err := h.service.GetTimesheetReport(r.Context(), params)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, report, &httputil.Meta{
		Weeks:  len(report.Data),
		Global: report.Global,
	})
}

// GetEmployee returns the employee linked to the current user
func (h *ReportHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.EmployeeForUser(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"employee": id})
}

// GetWorkingHours returns the expected working time
func (h *ReportHandler) GetWorkingHours(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.service.WorkingHours())
}
