package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/internal/timesheet/service"
	"github.com/medflow/medflow-timesheet/pkg/httputil"
	"github.com/medflow/medflow-timesheet/pkg/logger"
)

// TimesheetHandler handles timesheet endpoints
type TimesheetHandler struct {
	service *service.TimesheetService
	reports *service.ReportService
	logger  *logger.Logger
}

// NewTimesheetHandler creates a new timesheet handler. reports resolves the employee
// of the current user when a request does not name one, and decides who may write
// which employee's timesheets.
func NewTimesheetHandler(svc *service.TimesheetService, reports *service.ReportService, log *logger.Logger) *TimesheetHandler {
	return &TimesheetHandler{
		service: svc,
		reports: reports,
		logger:  log,
	}
}

// LogEntryRequest is one time log of a timesheet request
type LogEntryRequest struct {
	Task        *string    `json:"task"`
	Hours       float64    `json:"hours" validate:"gte=0"`
	Description string     `json:"description" validate:"max=1000"`
	FromTime    *time.Time `json:"from_time"`
	ToTime      *time.Time `json:"to_time"`
}

// TimesheetRequest is the body of the create and update endpoints
type TimesheetRequest struct {
	Employee  string            `json:"employee" validate:"omitempty,max=140"`
	StartDate string            `json:"start_date" validate:"required,date"`
	EndDate   string            `json:"end_date" validate:"omitempty,date"`
	TimeLogs  []LogEntryRequest `json:"time_logs" validate:"dive"`
}

func (req *TimesheetRequest) toTimesheet() *repository.Timesheet {
	ts := &repository.Timesheet{EmployeeID: req.Employee}
	ts.StartDate, _ = calendar.ParseDate(req.StartDate)
	if req.EndDate != "" {
		ts.EndDate, _ = calendar.ParseDate(req.EndDate)
	}

	ts.Details = make([]repository.LogEntry, 0, len(req.TimeLogs))
	for _, l := range req.TimeLogs {
		ts.Details = append(ts.Details, repository.LogEntry{
			TaskID:      l.Task,
			Hours:       l.Hours,
			Description: l.Description,
			FromTime:    l.FromTime,
			ToTime:      l.ToTime,
		})
	}
	return ts
}

func decodeTimesheetRequest(r *http.Request) (*TimesheetRequest, error) {
	var req TimesheetRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Get returns a timesheet with its time logs
func (h *TimesheetHandler) Get(w http.ResponseWriter, r *http.Request) {
	ts, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, ts)
}

// Create creates a draft timesheet
func (h *TimesheetHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTimesheetRequest(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if req.Employee == "" {
		req.Employee, err = h.reports.EmployeeForUser(r.Context())
	} else {
		err = h.reports.AuthorizeEmployee(r.Context(), req.Employee)
	}
	if err != nil {
		httputil.Error(w, err)
		return
	}

	ts := req.toTimesheet()
	if err := h.service.Create(r.Context(), ts); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, ts)
}

// Update replaces the dates and time logs of a draft timesheet
func (h *TimesheetHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTimesheetRequest(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if err := h.authorize(r); err != nil {
		httputil.Error(w, err)
		return
	}

	ts := req.toTimesheet()
	ts.ID = chi.URLParam(r, "id")
	if err := h.service.Update(r.Context(), ts); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, ts)
}

// Submit submits a draft timesheet
func (h *TimesheetHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r); err != nil {
		httputil.Error(w, err)
		return
	}

	ts, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, ts)
}

// Cancel cancels a submitted timesheet
func (h *TimesheetHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r); err != nil {
		httputil.Error(w, err)
		return
	}

	ts, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, ts)
}

// authorize checks that the caller may write the timesheet named in the path
func (h *TimesheetHandler) authorize(r *http.Request) error {
	ts, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	return h.reports.AuthorizeEmployee(r.Context(), ts.EmployeeID)
}
