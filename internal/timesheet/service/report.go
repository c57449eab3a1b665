package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/pkg/actor"
	"github.com/medflow/medflow-timesheet/pkg/cache"
	"github.com/medflow/medflow-timesheet/pkg/config"
	"github.com/medflow/medflow-timesheet/pkg/errors"
	"github.com/medflow/medflow-timesheet/pkg/logger"
)

// MsgEmployeeNotFound is returned when the report cannot be tied to an employee
const MsgEmployeeNotFound = "No employee found for current user."

// Scope selects whose report is built. The zero value is the global view.
type Scope struct {
	EmployeeID string
}

// PerEmployee scopes a report to one employee
func PerEmployee(employeeID string) Scope {
	return Scope{EmployeeID: employeeID}
}

// Global is the administrator view: week metadata only, no hours
var Global = Scope{}

// IsGlobal reports whether the scope is the administrator view
func (s Scope) IsGlobal() bool {
	return s.EmployeeID == ""
}

// Namespace returns the cache namespace of the scope
func (s Scope) Namespace() string {
	if s.IsGlobal() {
		return cache.Namespace(cache.GlobalScope)
	}
	return cache.Namespace(s.EmployeeID)
}

// WeeklyReportEntry is the summary of one week
type WeeklyReportEntry struct {
	calendar.WeekBucket
	TotalHours float64
	Tasks      map[string]*TaskEntry
}

type weeklyReportEntryJSON struct {
	StartDate  string                `json:"start_date"`
	EndDate    string                `json:"end_date"`
	Key        string                `json:"key"`
	Dates      []string              `json:"dates"`
	TotalHours float64               `json:"total_hours"`
	Tasks      map[string]*TaskEntry `json:"tasks"`
}

// MarshalJSON flattens the week bucket next to the totals
func (e WeeklyReportEntry) MarshalJSON() ([]byte, error) {
	dates := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		dates[i] = calendar.FormatDate(d)
	}
	tasks := e.Tasks
	if tasks == nil {
		tasks = map[string]*TaskEntry{}
	}
	return json.Marshal(weeklyReportEntryJSON{
		StartDate:  calendar.FormatDate(e.StartDate),
		EndDate:    calendar.FormatDate(e.EndDate),
		Key:        e.Label,
		Dates:      dates,
		TotalHours: e.TotalHours,
		Tasks:      tasks,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON
func (e *WeeklyReportEntry) UnmarshalJSON(data []byte) error {
	var bucket calendar.WeekBucket
	if err := bucket.UnmarshalJSON(data); err != nil {
		return err
	}

	var totals struct {
		TotalHours float64               `json:"total_hours"`
		Tasks      map[string]*TaskEntry `json:"tasks"`
	}
	if err := json.Unmarshal(data, &totals); err != nil {
		return err
	}
	if totals.Tasks == nil {
		totals.Tasks = map[string]*TaskEntry{}
	}

	*e = WeeklyReportEntry{WeekBucket: bucket, TotalHours: totals.TotalHours, Tasks: totals.Tasks}
	return nil
}

// ReportRequest describes one report build
type ReportRequest struct {
	Scope     Scope
	StartDate time.Time
	WeekCount int
	Leaves    []repository.LeaveApplication
	Holidays  []repository.Holiday
	DailyNorm float64
}

// ReportBuilder computes weekly entries, reusing cached weeks
type ReportBuilder struct {
	employees    EmployeeStore
	aggregator   *Aggregator
	cache        cache.Cache
	bucketer     calendar.Bucketer
	skipWeekends bool
	logger       *logger.Logger
}

// NewReportBuilder creates a new report builder
func NewReportBuilder(
	employees EmployeeStore,
	aggregator *Aggregator,
	c cache.Cache,
	cfg config.ReportConfig,
	log *logger.Logger,
) *ReportBuilder {
	return &ReportBuilder{
		employees:    employees,
		aggregator:   aggregator,
		cache:        c,
		bucketer:     calendar.NewBucketer(cfg.WeekStartDay()),
		skipWeekends: cfg.SkipWeekends,
		logger:       log,
	}
}

// Build returns req.WeekCount entries keyed by week label, starting with the week
// containing req.StartDate and walking back one week at a time.
func (b *ReportBuilder) Build(ctx context.Context, req ReportRequest, today time.Time) (map[string]*WeeklyReportEntry, error) {
	if !req.Scope.IsGlobal() {
		ok, err := b.employees.Exists(ctx, req.Scope.EmployeeID)
		if err != nil {
			return nil, fmt.Errorf("resolve employee %s: %w", req.Scope.EmployeeID, err)
		}
		if !ok {
			return nil, errors.NotFoundMessage(MsgEmployeeNotFound)
		}
	}

	namespace := req.Scope.Namespace()
	holidays := NewHolidaySet(req.Holidays)
	result := make(map[string]*WeeklyReportEntry, req.WeekCount)
	start := calendar.Date(req.StartDate)

	for i := 0; i < req.WeekCount; i++ {
		bucket := b.bucketer.Week(start, today, b.skipWeekends)
		key := bucket.CacheKey()

		var entry WeeklyReportEntry
		hit, err := b.cache.Get(ctx, namespace, key, &entry)
		if err != nil {
			return nil, fmt.Errorf("read cached week %s: %w", key, err)
		}

		if hit {
			b.logger.Debug().Str("namespace", namespace).Str("key", key).Msg("report cache hit")
		} else {
			entry, err = b.compute(ctx, req, bucket, holidays)
			if err != nil {
				return nil, err
			}
			if err := b.cache.Set(ctx, namespace, key, entry); err != nil {
				return nil, fmt.Errorf("cache week %s: %w", key, err)
			}
			b.logger.Debug().Str("namespace", namespace).Str("key", key).Msg("report cache miss")
		}

		result[bucket.Label] = &entry
		start = bucket.StartDate.AddDate(0, 0, -1)
	}

	return result, nil
}

func (b *ReportBuilder) compute(ctx context.Context, req ReportRequest, bucket calendar.WeekBucket, holidays HolidaySet) (WeeklyReportEntry, error) {
	entry := WeeklyReportEntry{WeekBucket: bucket, Tasks: map[string]*TaskEntry{}}
	if req.Scope.IsGlobal() {
		return entry, nil
	}

	tasks, total, err := b.aggregator.Aggregate(ctx, req.Scope.EmployeeID, bucket.Dates)
	if err != nil {
		return entry, err
	}
	entry.Tasks = tasks
	entry.TotalHours = total

	// The leave deduction is only logged. TotalHours stays the sum of logged hours.
	deduction := Deduction(bucket, req.Leaves, holidays, req.DailyNorm)
	b.logger.WithEmployeeID(req.Scope.EmployeeID).Debug().
		Str("week", bucket.CacheKey()).
		Float64("total_hours", total).
		Float64("leave_deduction", deduction).
		Msg("week computed")

	return entry, nil
}

// WorkingHours is the expected working time of an employee
type WorkingHours struct {
	WorkingHour      float64 `json:"working_hour"`
	WorkingFrequency string  `json:"working_frequency"`
}

// TimesheetReport is the response of GetTimesheetReport
type TimesheetReport struct {
	WorkingHours
	Leaves   []repository.LeaveApplication `json:"leaves"`
	Holidays []repository.Holiday          `json:"holidays"`
	Data     map[string]*WeeklyReportEntry `json:"data"`
	// Time is the build duration in seconds
	Time float64 `json:"time"`
	// Global is set for the administrator view
	Global bool `json:"-"`
}

// ReportParams are the inputs of GetTimesheetReport. Zero values select the defaults:
// the current user's employee, today and the configured number of weeks.
type ReportParams struct {
	EmployeeID string
	StartDate  time.Time
	Weeks      int
}

// ReportService is the entry point of the weekly report
type ReportService struct {
	employees EmployeeStore
	leaves    LeaveStore
	holidays  HolidayStore
	builder   *ReportBuilder
	report    config.ReportConfig
	auth      config.AuthConfig
	now       func() time.Time
	logger    *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(
	employees EmployeeStore,
	leaves LeaveStore,
	holidays HolidayStore,
	builder *ReportBuilder,
	reportCfg config.ReportConfig,
	authCfg config.AuthConfig,
	log *logger.Logger,
) *ReportService {
	return &ReportService{
		employees: employees,
		leaves:    leaves,
		holidays:  holidays,
		builder:   builder,
		report:    reportCfg,
		auth:      authCfg,
		now:       time.Now,
		logger:    log,
	}
}

// WorkingHours returns the configured daily norm
func (s *ReportService) WorkingHours() WorkingHours {
	return WorkingHours{
		WorkingHour:      s.report.DailyNorm,
		WorkingFrequency: s.report.WorkingFrequency,
	}
}

// EmployeeForUser returns the id of the employee linked to the current user
func (s *ReportService) EmployeeForUser(ctx context.Context) (string, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return "", errors.Unauthorized("authentication required")
	}

	emp, err := s.employees.GetByUserID(ctx, a.ID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return "", errors.NotFoundMessage(MsgEmployeeNotFound)
		}
		return "", err
	}
	return emp.ID, nil
}

// AuthorizeEmployee allows the administrator to write timesheets for any employee and
// everyone else only for the employee linked to their user.
func (s *ReportService) AuthorizeEmployee(ctx context.Context, employeeID string) error {
	a := actor.FromContext(ctx)
	if a == nil {
		return errors.Unauthorized("authentication required")
	}
	if a.IsAdministrator(s.auth.AdministratorUser, s.auth.AdministratorRole) {
		return nil
	}

	own, err := s.EmployeeForUser(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return errors.Forbidden("no employee is linked to the current user")
		}
		return err
	}
	if own != employeeID {
		return errors.Forbidden("timesheets of other employees cannot be modified")
	}
	return nil
}

// GetTimesheetReport builds the weekly report together with the leaves and holidays
// around it.
func (s *ReportService) GetTimesheetReport(ctx context.Context, params ReportParams) (*TimesheetReport, error) {
	started := time.Now()
	today := calendar.Date(s.now())

	weeks := params.Weeks
	if weeks == 0 {
		weeks = s.report.DefaultWeeks
	}
	if weeks < 1 || weeks > s.report.MaxWeeks {
		return nil, errors.BadRequest(fmt.Sprintf("max_week must be between 1 and %d", s.report.MaxWeeks))
	}

	start := today
	if !params.StartDate.IsZero() {
		start = calendar.Date(params.StartDate)
	}

	scope, err := s.resolveScope(ctx, params.EmployeeID)
	if err != nil {
		return nil, err
	}

	report := &TimesheetReport{
		WorkingHours: s.WorkingHours(),
		Leaves:       []repository.LeaveApplication{},
		Holidays:     []repository.Holiday{},
		Global:       scope.IsGlobal(),
	}

	if !scope.IsGlobal() {
		from := start.AddDate(0, 0, -weeks*7)
		to := start.AddDate(0, 0, weeks*7)

		report.Leaves, err = s.leaves.ListForEmployee(ctx, scope.EmployeeID, from, to)
		if err != nil {
			return nil, err
		}
		report.Holidays, err = s.holidaysFor(ctx, scope.EmployeeID, from, to)
		if err != nil {
			return nil, err
		}
	}

	report.Data, err = s.builder.Build(ctx, ReportRequest{
		Scope:     scope,
		StartDate: start,
		WeekCount: weeks,
		Leaves:    report.Leaves,
		Holidays:  report.Holidays,
		DailyNorm: s.report.DailyNorm,
	}, today)
	if err != nil {
		return nil, err
	}

	report.Time = time.Since(started).Seconds()
	return report, nil
}

// resolveScope picks the employee whose report is requested. Without an explicit
// employee the current user's is used, and the administrator gets the global view.
func (s *ReportService) resolveScope(ctx context.Context, employeeID string) (Scope, error) {
	if employeeID != "" {
		ok, err := s.employees.Exists(ctx, employeeID)
		if err != nil {
			return Scope{}, fmt.Errorf("resolve employee %s: %w", employeeID, err)
		}
		if !ok {
			return Scope{}, errors.NotFoundMessage(MsgEmployeeNotFound)
		}
		return PerEmployee(employeeID), nil
	}

	a := actor.FromContext(ctx)
	if a == nil {
		return Scope{}, errors.Unauthorized("authentication required")
	}
	if a.IsAdministrator(s.auth.AdministratorUser, s.auth.AdministratorRole) {
		return Global, nil
	}

	id, err := s.EmployeeForUser(ctx)
	if err != nil {
		return Scope{}, err
	}
	return PerEmployee(id), nil
}

func (s *ReportService) holidaysFor(ctx context.Context, employeeID string, from, to time.Time) ([]repository.Holiday, error) {
	listID, err := s.employees.HolidayListID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if listID == nil || *listID == "" {
		return []repository.Holiday{}, nil
	}
	return s.holidays.ListBetween(ctx, *listID, from, to)
}
